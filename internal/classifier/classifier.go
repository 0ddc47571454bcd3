// Package classifier assigns a category and parsed attributes to scanned
// files using an ordered, first-match-wins rule table.
package classifier

import (
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/marco/mediaVault/internal/media"
)

// Classifier applies Rules with a fixed set of extension allow-lists.
type Classifier struct {
	video map[string]bool
	audio map[string]bool
	photo map[string]bool
	rules []Rule
	now   func() time.Time
}

// New creates a classifier. Extensions are compared lower-cased.
func New(video, audio, photo []string) *Classifier {
	return &Classifier{
		video: extSet(video),
		audio: extSet(audio),
		photo: extSet(photo),
		rules: Rules,
		now:   time.Now,
	}
}

func extSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = true
	}
	return m
}

// IsVideo reports whether ext is on the video allow-list.
func (c *Classifier) IsVideo(ext string) bool {
	return c.video[strings.ToLower(ext)]
}

// Classify returns the classified record for raw. It never fails: a file
// no rule matches is Unsorted.
func (c *Classifier) Classify(raw media.RawFile) *media.File {
	name := filepath.Base(raw.Path)
	in := Input{
		Base: norm.NFC.String(strings.TrimSuffix(name, filepath.Ext(name))),
		Ext:  raw.Ext(),
		Dir:  filepath.Dir(raw.Path),
	}

	f := &media.File{
		Path:     raw.Path,
		Size:     raw.Size,
		ModTime:  raw.ModTime,
		Ext:      in.Ext,
		Category: media.Unsorted,
		Rule:     DefaultRule,
	}
	for _, rule := range c.rules {
		if attrs, ok := rule.Match(c, in); ok {
			f.Category = rule.Category
			f.Attrs = attrs
			f.Rule = rule.Name
			break
		}
	}
	if c.video[in.Ext] {
		f.Attrs.Resolution = Resolution(in.Base)
	}
	return f
}

// ClassifyAll classifies every file, preserving order.
func (c *Classifier) ClassifyAll(raws []media.RawFile) []*media.File {
	out := make([]*media.File, 0, len(raws))
	for _, raw := range raws {
		out = append(out, c.Classify(raw))
	}
	return out
}
