package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/cache"
	"github.com/marco/mediaVault/internal/classifier"
	"github.com/marco/mediaVault/internal/config"
	"github.com/marco/mediaVault/internal/duplicates"
	"github.com/marco/mediaVault/internal/fsx"
	"github.com/marco/mediaVault/internal/hasher"
	"github.com/marco/mediaVault/internal/media"
	"github.com/marco/mediaVault/internal/organizer"
	"github.com/marco/mediaVault/internal/scanner"
)

// pipeline holds the components one command run wires together.
type pipeline struct {
	cfg        *config.Config
	fs         afero.Fs
	logger     *slog.Logger
	scanner    *scanner.Scanner
	classifier *classifier.Classifier
	hasher     *hasher.Hasher
	digests    cache.Cache
}

func newPipeline(cfg *config.Config, fsys afero.Fs, logger *slog.Logger) (*pipeline, error) {
	var backing cache.Cache
	if cfg.Cache.Path != "" {
		sq, err := cache.NewSQLiteCache(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		backing = sq
	}
	digests, err := cache.NewLayered(backing, cache.DefaultMemorySize)
	if err != nil {
		if backing != nil {
			backing.Close()
		}
		return nil, fmt.Errorf("create digest cache: %w", err)
	}

	h, err := hasher.New(fsys, cfg.Advanced.HashAlgorithm, cfg.Advanced.ChunkSize)
	if err != nil {
		digests.Close()
		return nil, err
	}

	return &pipeline{
		cfg:    cfg,
		fs:     fsys,
		logger: logger,
		scanner: scanner.New(fsys, cfg.MediaExtensions(), cfg.Advanced.IgnorePatterns).
			WithLogger(logger),
		classifier: classifier.New(
			cfg.Advanced.VideoExtensions,
			cfg.Advanced.AudioExtensions,
			cfg.Advanced.PhotoExtensions,
		),
		hasher:  h.WithCache(digests).WithLogger(logger),
		digests: digests,
	}, nil
}

func (p *pipeline) Close() error {
	return p.digests.Close()
}

// scan enumerates and classifies every media file under roots.
func (p *pipeline) scan(ctx context.Context, roots []string) ([]*media.File, *scanner.Report, error) {
	raws, rep, err := p.scanner.ScanAll(ctx, roots)
	if err != nil {
		return nil, rep, err
	}
	files := p.classifier.ClassifyAll(raws)
	rep.Count(files)

	p.logger.Info("scan complete",
		"roots", len(roots),
		"files", len(files),
		"bytes", rep.Bytes,
		"skipped", len(rep.Skipped),
	)
	return files, rep, nil
}

// detect groups byte-identical files. Hash failures are in the report; the
// returned error is only for fatal problems.
func (p *pipeline) detect(ctx context.Context, files []*media.File, criteria string) (*duplicates.Report, error) {
	pool := hasher.NewPool(p.hasher, p.cfg.Advanced.MaxWorkers)
	finder, err := duplicates.NewFinder(pool, criteria)
	if err != nil {
		return nil, err
	}
	rep, err := finder.WithLogger(p.logger).Find(ctx, files)
	if err != nil {
		return nil, err
	}
	p.logger.Info("duplicate detection complete",
		"groups", len(rep.Groups),
		"candidates", rep.Candidates(),
		"reclaimable_bytes", rep.Reclaimable(),
		"hash_failed", len(rep.HashFailed),
	)
	return rep, nil
}

// hashFailure turns the report's hash errors into a partial failure.
func hashFailure(rep *duplicates.Report) error {
	if len(rep.HashFailed) == 0 {
		return nil
	}
	return &media.PartialFailure{
		Op:     "hash",
		Failed: len(rep.HashFailed),
		Total:  rep.Hashed + len(rep.HashFailed),
	}
}

func (p *pipeline) planner(opts organizer.Options) *organizer.Planner {
	return organizer.NewPlanner(p.fs, p.hasher, opts).WithLogger(p.logger)
}

// execute runs plan. A real run holds the output root lock for its whole
// duration; a dry run takes no lock so it never creates the output root.
func (p *pipeline) execute(ctx context.Context, plan *organizer.Plan, dryRun bool) (*organizer.ExecutionReport, error) {
	if !dryRun {
		lock, err := organizer.AcquireLock(plan.OutputRoot)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				p.logger.Warn("failed to release lock", "path", lock.Path(), "error", err)
			}
		}()
	}

	exec := organizer.NewExecutor(fsx.NewMover(p.fs), dryRun).WithLogger(p.logger)
	rep, err := exec.Execute(ctx, plan)
	if rep != nil {
		p.logger.Info("organize complete",
			"run_id", rep.RunID,
			"dry_run", dryRun,
			"moved", rep.Moved,
			"skipped", rep.Skipped,
			"failed", rep.Failed,
		)
	}
	return rep, err
}
