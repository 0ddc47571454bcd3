// Package media holds the records that flow through a mediaVault run.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Category is the single classification assigned to every scanned file.
type Category int

const (
	Unsorted Category = iota
	Movie
	TVEpisode
	Music
	Photo
)

// Categories lists every category in report order.
var Categories = []Category{Movie, TVEpisode, Music, Photo, Unsorted}

func (c Category) String() string {
	switch c {
	case Movie:
		return "movie"
	case TVEpisode:
		return "tv_episode"
	case Music:
		return "music"
	case Photo:
		return "photo"
	default:
		return "unsorted"
	}
}

// MarshalText renders the category by name so plan files stay readable.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name written by MarshalText.
func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "movie":
		*c = Movie
	case "tv_episode":
		*c = TVEpisode
	case "music":
		*c = Music
	case "photo":
		*c = Photo
	case "unsorted":
		*c = Unsorted
	default:
		return fmt.Errorf("unknown category %q", text)
	}
	return nil
}

// Attributes are the structured fields parsed out of a filename. Only the
// fields implied by the category are set.
type Attributes struct {
	Title      string `json:"title,omitempty"`
	Year       int    `json:"year,omitempty"`
	ShowName   string `json:"show_name,omitempty"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// RawFile is what the scanner yields before classification.
type RawFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Ext returns the lower-cased extension including the dot.
func (r RawFile) Ext() string {
	return strings.ToLower(filepath.Ext(r.Path))
}

// File is a classified media file. Everything except the digest is fixed
// once the classifier returns it.
type File struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Ext      string
	Category Category
	Attrs    Attributes
	Rule     string // name of the rule that classified the file

	digestOnce sync.Once
	digest     string
}

// BaseName is the file name without directory and extension.
func (f *File) BaseName() string {
	name := filepath.Base(f.Path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Digest returns the content digest and whether it has been computed.
func (f *File) Digest() (string, bool) {
	return f.digest, f.digest != ""
}

// SetDigest records the content digest. Only the first call has an effect;
// it reports whether this call stored the value.
func (f *File) SetDigest(d string) bool {
	stored := false
	f.digestOnce.Do(func() {
		f.digest = d
		stored = true
	})
	return stored
}
