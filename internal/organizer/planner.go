// Package organizer plans and performs the relocation of classified files
// into the output layout.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/config"
	"github.com/marco/mediaVault/internal/hasher"
	"github.com/marco/mediaVault/internal/media"
)

// MaxDisambiguator is the highest " (N)" suffix tried before giving up.
const MaxDisambiguator = 999

// Options configures a Planner.
type Options struct {
	OutputRoot        string
	NamingPattern     string
	Overwrite         bool
	SidecarExtensions []string
}

// OptionsFromConfig builds planner options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputRoot:        cfg.Organization.OutputDirectory,
		NamingPattern:     cfg.Organization.NamingPattern,
		Overwrite:         cfg.Organization.Overwrite,
		SidecarExtensions: cfg.Advanced.SidecarExtensions,
	}
}

// Planner computes move plans. It only ever reads the filesystem.
type Planner struct {
	fs          afero.Fs
	hasher      *hasher.Hasher
	layout      Layout
	sidecarExts map[string]bool
	overwrite   bool
	logger      *slog.Logger
}

// NewPlanner creates a planner. h is used to compare a file with an
// existing destination.
func NewPlanner(fsys afero.Fs, h *hasher.Hasher, opts Options) *Planner {
	exts := make(map[string]bool, len(opts.SidecarExtensions))
	for _, e := range opts.SidecarExtensions {
		exts[strings.ToLower(e)] = true
	}
	return &Planner{
		fs:     afero.NewReadOnlyFs(fsys),
		hasher: h,
		layout: Layout{
			Root:   filepath.Clean(opts.OutputRoot),
			Dotted: opts.NamingPattern == config.NamingDotted,
		},
		sidecarExts: exts,
		overwrite:   opts.Overwrite,
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger.
func (p *Planner) WithLogger(logger *slog.Logger) *Planner {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Layout returns the destination layout in use.
func (p *Planner) Layout() Layout { return p.layout }

// run holds the state of one planning pass.
type run struct {
	claims    map[string]string // destination -> source
	primaries map[string]bool
	taken     map[string]bool     // sidecars already attached to a primary
	stems     map[string][]string // dir -> stems of the primaries in it
	dirs      map[string][]os.FileInfo
}

// Plan computes the plan for files. The result depends only on the files
// and the current state of the filesystem.
func (p *Planner) Plan(ctx context.Context, files []*media.File) (*Plan, error) {
	sorted := make([]*media.File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	r := &run{
		claims:    make(map[string]string),
		primaries: make(map[string]bool, len(files)),
		taken:     make(map[string]bool),
		dirs:      make(map[string][]os.FileInfo),
		stems:     make(map[string][]string),
	}
	for _, f := range sorted {
		r.primaries[f.Path] = true
		dir := filepath.Dir(f.Path)
		r.stems[dir] = append(r.stems[dir], stemOf(f.Path))
	}

	plan := &Plan{
		Version:    PlanVersion,
		Type:       PlanType,
		RunID:      uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		OutputRoot: p.layout.Root,
		Overwrite:  p.overwrite,
		Entries:    make([]Entry, 0, len(sorted)),
	}

	for _, f := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := p.planFile(r, f)
		p.logger.Debug("planned file",
			"source", entry.Source,
			"destination", entry.Destination,
			"action", entry.Action,
			"sidecars", len(entry.Sidecars),
		)
		plan.Entries = append(plan.Entries, entry)
	}
	return plan, nil
}

func (p *Planner) planFile(r *run, f *media.File) Entry {
	t := p.layout.target(f)
	entry := Entry{Source: f.Path, Category: f.Category}

	n, action, replace, err := p.resolve(r, f, t)
	if err != nil {
		entry.Destination = t.path(0)
		entry.Action = ActionFailed
		entry.Error = err.Error()
		return entry
	}
	entry.Destination = t.path(n)
	entry.Action = action
	entry.Replace = replace
	if action.Moves() {
		r.claims[entry.Destination] = f.Path
	}

	for _, sc := range p.sidecars(r, f) {
		entry.Sidecars = append(entry.Sidecars, p.planSidecar(r, entry, t, n, sc))
	}
	return entry
}

// resolve picks the disambiguator for f's destination and the action.
func (p *Planner) resolve(r *run, f *media.File, t target) (n int, action Action, replace bool, err error) {
	for n = 0; n <= MaxDisambiguator; n++ {
		candidate := t.path(n)
		if candidate == f.Path {
			return n, ActionSkip, false, nil
		}
		if _, claimed := r.claims[candidate]; claimed {
			continue
		}

		info, err := p.fs.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			if n == 0 {
				return n, ActionMove, false, nil
			}
			return n, ActionRenamed, false, nil
		}
		if err != nil {
			return 0, ActionFailed, false, fmt.Errorf("stat %s: %w", candidate, err)
		}

		same, err := p.sameContent(f, candidate, info)
		if err != nil {
			return 0, ActionFailed, false, err
		}
		if same {
			return n, ActionSkip, false, nil
		}
		if p.overwrite && n == 0 {
			return n, ActionMove, true, nil
		}
	}
	return 0, ActionFailed, false, &media.CollisionError{Destination: t.path(0), Attempts: MaxDisambiguator}
}

// sameContent compares f with the existing file at path by size, then digest.
func (p *Planner) sameContent(f *media.File, path string, info os.FileInfo) (bool, error) {
	if info.IsDir() {
		return false, nil
	}
	if info.Size() != f.Size {
		return false, nil
	}
	want, err := p.hasher.Ensure(f)
	if err != nil {
		return false, err
	}
	got, err := p.hasher.Ensure(&media.File{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	if err != nil {
		return false, err
	}
	return want == got, nil
}

// sidecar is a companion file found next to a primary.
type sidecar struct {
	path string
	tail string // qualifier and extension, e.g. ".en.srt"
	info os.FileInfo
}

// sidecars lists files in f's directory named after f with a sidecar
// extension. Each sidecar is attached to at most one primary.
func (p *Planner) sidecars(r *run, f *media.File) []sidecar {
	if len(p.sidecarExts) == 0 {
		return nil
	}
	dir := filepath.Dir(f.Path)
	entries, ok := r.dirs[dir]
	if !ok {
		var err error
		entries, err = afero.ReadDir(p.fs, dir)
		if err != nil {
			p.logger.Warn("failed to list sidecars", "dir", dir, "error", err)
		}
		r.dirs[dir] = entries
	}

	stem := stemOf(f.Path)
	var out []sidecar
	for _, info := range entries {
		name := info.Name()
		path := filepath.Join(dir, name)
		if !info.Mode().IsRegular() || r.primaries[path] || r.taken[path] {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !p.sidecarExts[ext] || !hasStem(name, stem) || ownerStem(r.stems[dir], name) != stem {
			continue
		}
		rest := name[len(stem):]
		qualifier := rest[:len(rest)-len(ext)]
		r.taken[path] = true
		out = append(out, sidecar{path: path, tail: qualifier + ext, info: info})
	}
	return out
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// hasStem reports whether name is stem followed by a dot-separated tail.
func hasStem(name, stem string) bool {
	return len(name) > len(stem) && strings.HasPrefix(name, stem) && name[len(stem)] == '.'
}

// ownerStem returns the longest primary stem that name belongs to, so
// "heat.1995.part2.srt" goes with "heat.1995.part2", not "heat.1995".
func ownerStem(stems []string, name string) string {
	owner := ""
	for _, s := range stems {
		if len(s) > len(owner) && hasStem(name, s) {
			owner = s
		}
	}
	return owner
}

func (p *Planner) planSidecar(r *run, primary Entry, t target, n int, sc sidecar) SidecarEntry {
	entry := SidecarEntry{Source: sc.path}
	if !primary.Action.Moves() {
		entry.Destination = sc.path
		entry.Action = ActionSkip
		return entry
	}

	dst := filepath.Join(filepath.Dir(primary.Destination), t.name(n, sc.tail))
	entry.Destination = dst
	if dst == sc.path {
		entry.Action = ActionSkip
		return entry
	}
	if _, claimed := r.claims[dst]; claimed {
		entry.Action = ActionFailed
		entry.Error = (&media.CollisionError{Destination: dst}).Error()
		return entry
	}

	info, err := p.fs.Stat(dst)
	switch {
	case errors.Is(err, os.ErrNotExist):
		entry.Action = ActionMove
	case err != nil:
		entry.Action = ActionFailed
		entry.Error = err.Error()
	default:
		f := &media.File{Path: sc.path, Size: sc.info.Size(), ModTime: sc.info.ModTime()}
		same, err := p.sameContent(f, dst, info)
		switch {
		case err != nil:
			entry.Action = ActionFailed
			entry.Error = err.Error()
		case same:
			entry.Action = ActionSkip
		case p.overwrite:
			entry.Action = ActionMove
			entry.Replace = true
		default:
			entry.Action = ActionFailed
			entry.Error = (&media.CollisionError{Destination: dst}).Error()
		}
	}
	if entry.Action.Moves() {
		r.claims[dst] = sc.path
	}
	return entry
}
