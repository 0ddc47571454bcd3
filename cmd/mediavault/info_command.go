package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/media"
	"github.com/marco/mediaVault/internal/organizer"
	"github.com/marco/mediaVault/internal/report"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "info [path...]",
		Short: "Show how files would be classified and where they would go",
		Long: "Info classifies the given files, or every media file under the given\n" +
			"directories, and shows the parsed attributes and destination path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ctx.roots(args)
			if err != nil {
				return err
			}
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			var files []*media.File
			for _, path := range paths {
				info, err := p.fs.Stat(path)
				if err != nil {
					return &media.PathError{Path: path, Err: err}
				}
				if !info.IsDir() {
					files = append(files, p.classifier.Classify(media.RawFile{
						Path:    path,
						Size:    info.Size(),
						ModTime: info.ModTime(),
					}))
					continue
				}
				found, _, err := p.scan(cmd.Context(), []string{path})
				if err != nil {
					return err
				}
				files = append(files, found...)
			}

			opts := organizer.OptionsFromConfig(p.cfg)
			if outputDir != "" {
				opts.OutputRoot = outputDir
			}
			layout := p.planner(opts).Layout()

			if ctx.jsonOutput() {
				views := make([]fileView, 0, len(files))
				for _, f := range files {
					v := newFileView(f)
					v.Destination = layout.Destination(f)
					views = append(views, v)
				}
				return writeJSON(cmd, views)
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No media files found.")
				return nil
			}
			report.Info(cmd.OutOrStdout(), files, layout)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output root used for the destination column")
	return cmd
}
