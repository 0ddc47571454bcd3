package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/media"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type fileView struct {
	Path        string           `json:"path"`
	Size        int64            `json:"size"`
	ModTime     time.Time        `json:"mod_time"`
	Category    media.Category   `json:"category"`
	Rule        string           `json:"rule"`
	Attributes  media.Attributes `json:"attributes"`
	Destination string           `json:"destination,omitempty"`
}

func newFileView(f *media.File) fileView {
	return fileView{
		Path:       f.Path,
		Size:       f.Size,
		ModTime:    f.ModTime,
		Category:   f.Category,
		Rule:       f.Rule,
		Attributes: f.Attrs,
	}
}

type hashFailureView struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func hashFailureViews(errs []*media.HashError) []hashFailureView {
	views := make([]hashFailureView, 0, len(errs))
	for _, e := range errs {
		views = append(views, hashFailureView{Path: e.Path, Error: e.Err.Error()})
	}
	return views
}
