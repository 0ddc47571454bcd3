package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/scanner"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var outputDir string
	var skipStartup bool

	cmd := &cobra.Command{
		Use:   "watch [root...]",
		Short: "Organize new media files as they appear",
		Long: "Watch monitors the roots and runs an organize pass once new files have\n" +
			"settled. With watch.interval_minutes set, a full pass also runs on that\n" +
			"interval.",
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

			dry := dryRun || p.cfg.Organization.DryRun
			pass := func(runCtx context.Context) error {
				plan, err := p.plan(runCtx, roots, outputDir)
				if err != nil {
					return err
				}
				_, err = p.execute(runCtx, plan, dry)
				return err
			}

			runCtx := cmd.Context()
			interval := time.Duration(p.cfg.Watch.IntervalMinutes) * time.Minute
			sched := newScheduler(pass, interval, p.logger)

			debounce := time.Duration(p.cfg.Watch.DebounceSeconds) * time.Second
			w, err := scanner.NewWatcher(p.scanner, roots, debounce, func(path string) {
				p.logger.Debug("change detected", "path", path)
				sched.trigger(runCtx, "change")
			})
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			sched.run(runCtx, !skipStartup)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log planned moves without moving anything")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output root (overrides organization.output_directory)")
	cmd.Flags().BoolVar(&skipStartup, "no-initial-pass", false, "Do not organize existing files before watching")
	return cmd
}
