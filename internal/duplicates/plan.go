package duplicates

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/fsx"
	"github.com/marco/mediaVault/internal/media"
)

// PlanVersion is the current duplicate plan file format.
const PlanVersion = 1

// PlanType marks a plan file as a duplicate-removal plan.
const PlanType = "duplicates"

// Plan is a saved detection result that can be removed later.
type Plan struct {
	Version   int         `json:"version"`
	Type      string      `json:"type"`
	RunID     string      `json:"run_id"`
	CreatedAt time.Time   `json:"created_at"`
	Roots     []string    `json:"roots"`
	Criteria  string      `json:"keep_criteria"`
	Groups    []PlanGroup `json:"groups"`
}

// PlanGroup is one duplicate group in a plan.
type PlanGroup struct {
	Digest     string     `json:"digest"`
	Size       int64      `json:"size"`
	Keeper     PlanFile   `json:"keeper"`
	Candidates []PlanFile `json:"candidates"`
}

// PlanFile identifies one member of a group.
type PlanFile struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// NewPlan captures report as a plan.
func NewPlan(report *Report, roots []string) *Plan {
	p := &Plan{
		Version:   PlanVersion,
		Type:      PlanType,
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Roots:     roots,
		Criteria:  report.Criteria,
		Groups:    make([]PlanGroup, 0, len(report.Groups)),
	}
	for _, g := range report.Groups {
		pg := PlanGroup{
			Digest: g.Digest,
			Size:   g.Size,
			Keeper: PlanFile{Path: g.Keeper.Path, ModTime: g.Keeper.ModTime},
		}
		for _, c := range g.Candidates {
			pg.Candidates = append(pg.Candidates, PlanFile{Path: c.Path, ModTime: c.ModTime})
		}
		p.Groups = append(p.Groups, pg)
	}
	return p
}

// ToGroups rebuilds the groups, with digests already recorded.
func (p *Plan) ToGroups() []Group {
	file := func(pf PlanFile, g PlanGroup) *media.File {
		f := &media.File{Path: pf.Path, Size: g.Size, ModTime: pf.ModTime}
		f.SetDigest(g.Digest)
		return f
	}

	groups := make([]Group, 0, len(p.Groups))
	for _, pg := range p.Groups {
		g := Group{Digest: pg.Digest, Size: pg.Size, Keeper: file(pg.Keeper, pg)}
		for _, c := range pg.Candidates {
			g.Candidates = append(g.Candidates, file(c, pg))
		}
		groups = append(groups, g)
	}
	return groups
}

// SavePlan writes p as indented JSON, atomically.
func SavePlan(fsys afero.Fs, path string, p *Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	data = append(data, '\n')
	if err := fsx.WriteFileAtomic(fsys, filepath.Dir(path), filepath.Base(path), data); err != nil {
		return fmt.Errorf("write plan %s: %w", path, err)
	}
	return nil
}

// LoadPlan reads a plan written by SavePlan.
func LoadPlan(fsys afero.Fs, path string) (*Plan, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if p.Type != PlanType {
		return nil, fmt.Errorf("plan %s has type %q, want %q", path, p.Type, PlanType)
	}
	if p.Version != PlanVersion {
		return nil, fmt.Errorf("plan %s has unsupported version %d", path, p.Version)
	}
	return &p, nil
}
