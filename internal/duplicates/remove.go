package duplicates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/media"
	"github.com/marco/mediaVault/internal/retry"
)

// Removal records one deleted (or, in a dry run, deletable) candidate.
type Removal struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ReasonAlreadyRemoved is the failure reason for a candidate that no longer
// exists.
const ReasonAlreadyRemoved = "already removed"

// Failure records a candidate that could not be removed.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RemovalReport summarizes a removal batch.
type RemovalReport struct {
	DryRun         bool      `json:"dry_run"`
	Removed        []Removal `json:"removed"`
	Failed         []Failure `json:"failed"`
	BytesReclaimed int64     `json:"bytes_reclaimed"`
}

// Remover deletes deletion candidates. Keepers are never touched.
type Remover struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewRemover creates a remover on fsys.
func NewRemover(fsys afero.Fs) *Remover {
	return &Remover{fs: fsys, logger: slog.Default()}
}

// WithLogger sets the logger.
func (r *Remover) WithLogger(logger *slog.Logger) *Remover {
	if logger != nil {
		r.logger = logger
	}
	return r
}

const (
	removeAttempts = 3
	removeBackoff  = 100 * time.Millisecond
)

// Remove deletes every candidate in groups. A group whose keeper has gone
// missing is left alone. Per-file failures are collected and the batch
// continues; if any failed the returned error is a *media.PartialFailure.
// Cancellation stops between files and returns the context error.
func (r *Remover) Remove(ctx context.Context, groups []Group, dryRun bool) (*RemovalReport, error) {
	report := &RemovalReport{DryRun: dryRun, Removed: []Removal{}, Failed: []Failure{}}
	total := 0

	for _, g := range groups {
		if _, err := r.fs.Stat(g.Keeper.Path); err != nil {
			for _, c := range g.Candidates {
				total++
				report.Failed = append(report.Failed, Failure{
					Path:   c.Path,
					Reason: fmt.Sprintf("keeper %s unavailable: %v", g.Keeper.Path, err),
				})
			}
			r.logger.Warn("keeper missing, group skipped", "keeper", g.Keeper.Path, "error", err)
			continue
		}

		for _, c := range g.Candidates {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			total++

			info, err := r.fs.Stat(c.Path)
			if err != nil {
				reason := err.Error()
				if errors.Is(err, os.ErrNotExist) {
					reason = ReasonAlreadyRemoved
				}
				report.Failed = append(report.Failed, Failure{Path: c.Path, Reason: reason})
				continue
			}
			if info.Size() != c.Size || !info.ModTime().Equal(c.ModTime) {
				r.logger.Warn("duplicate changed since detection, not removed", "path", c.Path)
				report.Failed = append(report.Failed, Failure{Path: c.Path, Reason: "changed since detection"})
				continue
			}

			if dryRun {
				report.Removed = append(report.Removed, Removal{Path: c.Path, Size: c.Size})
				report.BytesReclaimed += c.Size
				continue
			}

			err = retry.Retry(ctx, func() error { return r.fs.Remove(c.Path) }, removeAttempts, removeBackoff)
			if errors.Is(err, os.ErrNotExist) {
				r.logger.Warn("duplicate already removed", "path", c.Path)
				report.Failed = append(report.Failed, Failure{Path: c.Path, Reason: ReasonAlreadyRemoved})
				continue
			}
			if err != nil {
				r.logger.Error("failed to remove duplicate", "path", c.Path, "error", err)
				report.Failed = append(report.Failed, Failure{Path: c.Path, Reason: err.Error()})
				continue
			}

			r.logger.Info("removed duplicate", "path", c.Path, "keeper", g.Keeper.Path, "size", c.Size)
			report.Removed = append(report.Removed, Removal{Path: c.Path, Size: c.Size})
			report.BytesReclaimed += c.Size
		}
	}

	if len(report.Failed) > 0 {
		return report, &media.PartialFailure{Op: "remove duplicates", Failed: len(report.Failed), Total: total}
	}
	return report, nil
}
