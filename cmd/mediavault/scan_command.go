package main

import (
	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/report"
	"github.com/marco/mediaVault/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [root...]",
		Short: "Enumerate and classify media files",
		Long:  "Scan walks the library roots, classifies every media file and prints counts by category.",
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

			files, rep, err := p.scan(cmd.Context(), roots)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				views := make([]fileView, 0, len(files))
				for _, f := range files {
					views = append(views, newFileView(f))
				}
				return writeJSON(cmd, struct {
					Report *scanner.Report `json:"report"`
					Files  []fileView      `json:"files"`
				}{rep, views})
			}
			report.Scan(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}
