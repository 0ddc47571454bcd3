package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/duplicates"
	"github.com/marco/mediaVault/internal/report"
)

func newDetectDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var savePlan string
	var keep string

	cmd := &cobra.Command{
		Use:   "detect-duplicates [root...]",
		Short: "Find byte-identical media files",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := ctx.roots(args)
			if err != nil {
				return err
			}
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			files, _, err := p.scan(cmd.Context(), roots)
			if err != nil {
				return err
			}
			rep, err := p.detect(cmd.Context(), files, criteriaOr(keep, p.cfg.Duplicates.KeepCriteria))
			if err != nil {
				return err
			}

			plan := duplicates.NewPlan(rep, roots)
			if savePlan != "" {
				if err := duplicates.SavePlan(p.fs, savePlan, plan); err != nil {
					return err
				}
				p.logger.Info("duplicate plan saved", "path", savePlan, "run_id", plan.RunID)
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, struct {
					Plan       *duplicates.Plan  `json:"plan"`
					HashFailed []hashFailureView `json:"hash_failed"`
				}{plan, hashFailureViews(rep.HashFailed)}); err != nil {
					return err
				}
			} else {
				report.Duplicates(cmd.OutOrStdout(), rep)
				if savePlan != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Plan saved to %s\n", savePlan)
				}
			}
			return hashFailure(rep)
		},
	}

	cmd.Flags().StringVar(&savePlan, "save-plan", "", "Write the detected groups to a plan file")
	cmd.Flags().StringVar(&keep, "keep", "", "Keep criteria (highest_quality, largest, smallest, oldest, newest)")
	return cmd
}

func newRemoveDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var planPath string
	var keep string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "remove-duplicates [root...]",
		Short: "Delete redundant copies, keeping one file per group",
		Long: "Remove-duplicates detects duplicate groups, or loads them from a plan\n" +
			"saved by detect-duplicates, and deletes every copy except the keeper.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			var groups []duplicates.Group
			var detectErr error
			if planPath != "" {
				if len(args) > 0 {
					return errors.New("a root path cannot be combined with --plan")
				}
				plan, err := duplicates.LoadPlan(p.fs, planPath)
				if err != nil {
					return err
				}
				groups = plan.ToGroups()
				p.logger.Info("duplicate plan loaded", "path", planPath, "run_id", plan.RunID, "groups", len(groups))
			} else {
				roots, err := ctx.roots(args)
				if err != nil {
					return err
				}
				files, _, err := p.scan(cmd.Context(), roots)
				if err != nil {
					return err
				}
				rep, err := p.detect(cmd.Context(), files, criteriaOr(keep, p.cfg.Duplicates.KeepCriteria))
				if err != nil {
					return err
				}
				groups = rep.Groups
				detectErr = hashFailure(rep)
			}

			dry := dryRun || p.cfg.Organization.DryRun
			removal, err := duplicates.NewRemover(p.fs).WithLogger(p.logger).Remove(cmd.Context(), groups, dry)
			if removal != nil {
				if ctx.jsonOutput() {
					if werr := writeJSON(cmd, removal); werr != nil {
						return werr
					}
				} else {
					report.Removal(cmd.OutOrStdout(), removal)
				}
			}
			return errors.Join(detectErr, err)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Remove the groups recorded in a saved plan")
	cmd.Flags().StringVar(&keep, "keep", "", "Keep criteria (highest_quality, largest, smallest, oldest, newest)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting anything")
	return cmd
}

func criteriaOr(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}
