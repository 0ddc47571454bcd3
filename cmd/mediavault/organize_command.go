package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/organizer"
	"github.com/marco/mediaVault/internal/report"
)

type organizeFlags struct {
	dryRun    bool
	outputDir string
	savePlan  string
	planPath  string
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var flags organizeFlags

	cmd := &cobra.Command{
		Use:   "organize [root...]",
		Short: "Move media files into the categorized output layout",
		Long: "Organize plans a destination for every media file under the roots and\n" +
			"moves it there together with its sidecar files. With --plan a saved\n" +
			"plan is executed instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			var plan *organizer.Plan
			if flags.planPath != "" {
				if len(args) > 0 || flags.outputDir != "" {
					return errors.New("--plan cannot be combined with a root path or --output-dir")
				}
				plan, err = organizer.LoadPlan(p.fs, flags.planPath)
				if err != nil {
					return err
				}
				p.logger.Info("organize plan loaded", "path", flags.planPath, "run_id", plan.RunID, "entries", len(plan.Entries))
			} else {
				roots, err := ctx.roots(args)
				if err != nil {
					return err
				}
				plan, err = p.plan(cmd.Context(), roots, flags.outputDir)
				if err != nil {
					return err
				}
			}

			if flags.savePlan != "" {
				if err := organizer.SavePlan(p.fs, flags.savePlan, plan); err != nil {
					return err
				}
				p.logger.Info("organize plan saved", "path", flags.savePlan, "run_id", plan.RunID)
			}

			dryRun := flags.dryRun || p.cfg.Organization.DryRun
			exec, execErr := p.execute(cmd.Context(), plan, dryRun)
			if exec == nil {
				return execErr
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, struct {
					Plan      *organizer.Plan            `json:"plan"`
					Execution *organizer.ExecutionReport `json:"execution"`
				}{plan, exec}); err != nil {
					return err
				}
				return execErr
			}
			if dryRun {
				fmt.Fprintln(out, "DRY RUN - no files were moved")
				report.Plan(out, plan)
			}
			report.Execution(out, exec)
			return execErr
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show the plan without moving anything")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "Output root (overrides organization.output_directory)")
	cmd.Flags().StringVar(&flags.savePlan, "save-plan", "", "Write the computed plan to a file")
	cmd.Flags().StringVar(&flags.planPath, "plan", "", "Execute a plan saved by --save-plan")
	return cmd
}

// plan scans roots and computes a move plan.
func (p *pipeline) plan(ctx context.Context, roots []string, outputDir string) (*organizer.Plan, error) {
	files, _, err := p.scan(ctx, roots)
	if err != nil {
		return nil, err
	}
	opts := organizer.OptionsFromConfig(p.cfg)
	if outputDir != "" {
		opts.OutputRoot = outputDir
	}
	plan, err := p.planner(opts).Plan(ctx, files)
	if err != nil {
		return nil, err
	}
	counts := plan.Counts()
	p.logger.Info("organize plan computed",
		"run_id", plan.RunID,
		"entries", len(plan.Entries),
		"moves", plan.Moves(),
		"already_organized", counts[organizer.ActionSkip],
		"failed", counts[organizer.ActionFailed],
	)
	return plan, nil
}
