// Package duplicates groups byte-identical files and removes redundant
// copies.
package duplicates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/marco/mediaVault/internal/hasher"
	"github.com/marco/mediaVault/internal/media"
)

// Group is a set of at least two files with the same size and digest.
type Group struct {
	Digest     string
	Size       int64
	Keeper     *media.File
	Candidates []*media.File // deletion candidates, in preference order
}

// Reclaimable is the number of bytes removing the candidates frees.
func (g Group) Reclaimable() int64 {
	return g.Size * int64(len(g.Candidates))
}

// Members returns the keeper followed by the candidates.
func (g Group) Members() []*media.File {
	return append([]*media.File{g.Keeper}, g.Candidates...)
}

// Report is the outcome of one detection pass.
type Report struct {
	Criteria   string
	Scanned    int
	Hashed     int
	Groups     []Group
	HashFailed []*media.HashError
}

// Reclaimable sums the reclaimable bytes over all groups.
func (r *Report) Reclaimable() int64 {
	var total int64
	for _, g := range r.Groups {
		total += g.Reclaimable()
	}
	return total
}

// Candidates counts deletion candidates over all groups.
func (r *Report) Candidates() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Candidates)
	}
	return n
}

// Finder detects duplicate groups.
type Finder struct {
	pool     *hasher.Pool
	criteria string
	logger   *slog.Logger
}

// NewFinder creates a finder. An unknown criteria is an error.
func NewFinder(pool *hasher.Pool, criteria string) (*Finder, error) {
	if _, err := comparator(criteria); err != nil {
		return nil, err
	}
	return &Finder{pool: pool, criteria: criteria, logger: slog.Default()}, nil
}

// WithLogger sets the logger.
func (f *Finder) WithLogger(logger *slog.Logger) *Finder {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// Find groups files by content. Only files that share their size with at
// least one other file are hashed. Files that fail to hash are reported and
// left out of every group.
func (f *Finder) Find(ctx context.Context, files []*media.File) (*Report, error) {
	report := &Report{Criteria: f.criteria, Scanned: len(files)}

	bySize := make(map[int64][]*media.File)
	for _, file := range files {
		bySize[file.Size] = append(bySize[file.Size], file)
	}

	var toHash []*media.File
	for _, bucket := range bySize {
		if len(bucket) > 1 {
			toHash = append(toHash, bucket...)
		}
	}
	f.logger.Debug("hashing size-matched files", "files", len(toHash), "scanned", len(files))

	res, err := f.pool.HashAll(ctx, toHash, nil)
	if err != nil {
		return nil, err
	}
	report.Hashed = len(res.Hashed)
	report.HashFailed = res.Failed
	for _, herr := range res.Failed {
		f.logger.Warn("failed to hash file", "path", herr.Path, "error", herr.Err)
	}

	type groupKey struct {
		size   int64
		digest string
	}
	byContent := make(map[groupKey][]*media.File)
	for _, file := range res.Hashed {
		d, _ := file.Digest()
		k := groupKey{size: file.Size, digest: d}
		byContent[k] = append(byContent[k], file)
	}

	for k, members := range byContent {
		if len(members) < 2 {
			continue
		}
		keeper, candidates, err := SelectKeeper(members, f.criteria)
		if err != nil {
			return nil, fmt.Errorf("select keeper: %w", err)
		}
		report.Groups = append(report.Groups, Group{
			Digest:     k.digest,
			Size:       k.size,
			Keeper:     keeper,
			Candidates: candidates,
		})
	}
	SortGroups(report.Groups)

	return report, nil
}

// SortGroups orders groups by reclaimable bytes, largest first, then by
// keeper path.
func SortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		ri, rj := groups[i].Reclaimable(), groups[j].Reclaimable()
		if ri != rj {
			return ri > rj
		}
		return groups[i].Keeper.Path < groups[j].Keeper.Path
	})
}
