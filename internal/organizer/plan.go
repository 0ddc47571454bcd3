package organizer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/fsx"
	"github.com/marco/mediaVault/internal/media"
)

// Action is what the executor will do with one file.
type Action string

const (
	ActionMove    Action = "move"
	ActionSkip    Action = "skip_already_organized"
	ActionRenamed Action = "conflict_renamed"
	ActionFailed  Action = "failed"
)

// Moves reports whether the action relocates the file.
func (a Action) Moves() bool {
	return a == ActionMove || a == ActionRenamed
}

// PlanVersion is the current move plan file format.
const PlanVersion = 1

// PlanType marks a plan file as an organize plan.
const PlanType = "organize"

// SidecarEntry is a companion file relocated with its primary.
type SidecarEntry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Action      Action `json:"action"`
	Replace     bool   `json:"replace,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Entry is the plan for one scanned file.
type Entry struct {
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Action      Action         `json:"action"`
	Category    media.Category `json:"category"`
	Replace     bool           `json:"replace,omitempty"`
	Error       string         `json:"error,omitempty"`
	Sidecars    []SidecarEntry `json:"sidecars,omitempty"`
}

// Plan is the full mapping computed by one planning run. Destinations of
// moving entries are unique within a plan.
type Plan struct {
	Version    int       `json:"version"`
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	OutputRoot string    `json:"output_root"`
	Overwrite  bool      `json:"overwrite"`
	Entries    []Entry   `json:"entries"`
}

// Counts tallies primary entries by action.
func (p *Plan) Counts() map[Action]int {
	counts := make(map[Action]int, 4)
	for _, e := range p.Entries {
		counts[e.Action]++
	}
	return counts
}

// Moves counts primary entries that relocate a file.
func (p *Plan) Moves() int {
	n := 0
	for _, e := range p.Entries {
		if e.Action.Moves() {
			n++
		}
	}
	return n
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
