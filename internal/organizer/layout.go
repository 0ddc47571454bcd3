package organizer

import (
	"fmt"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/marco/mediaVault/internal/classifier"
	"github.com/marco/mediaVault/internal/media"
)

// Category directories under the output root.
const (
	MoviesDir   = "movies"
	TVShowsDir  = "tv_shows"
	PhotosDir   = "photos"
	MusicDir    = "music"
	UnsortedDir = "unsorted"
)

const fallbackStem = "unnamed"

// Layout maps classified files to destination paths.
type Layout struct {
	Root   string
	Dotted bool
}

// target is a destination split so the title can be shortened without
// touching the suffix, a disambiguator or the extension.
type target struct {
	dir    string
	title  string
	suffix string
	ext    string
}

// name renders the file name with disambiguator n (0 for none) and tail in
// place of the extension.
func (t target) name(n int, tail string) string {
	counter := ""
	if n > 0 {
		counter = fmt.Sprintf(" (%d)", n)
	}
	return classifier.FitComponent(t.title, t.suffix+counter+tail)
}

func (t target) path(n int) string {
	return filepath.Join(t.dir, t.name(n, t.ext))
}

func (l Layout) target(f *media.File) target {
	switch f.Category {
	case media.Movie:
		return target{
			dir:    filepath.Join(l.Root, MoviesDir),
			title:  l.title(f.Attrs.Title),
			suffix: fmt.Sprintf(".%d", f.Attrs.Year),
			ext:    f.Ext,
		}
	case media.TVEpisode:
		show := l.title(f.Attrs.ShowName)
		return target{
			dir:    filepath.Join(l.Root, TVShowsDir, classifier.FitComponent(show, ""), fmt.Sprintf("Season %02d", f.Attrs.Season)),
			title:  show,
			suffix: fmt.Sprintf(".S%02dE%02d", f.Attrs.Season, f.Attrs.Episode),
			ext:    f.Ext,
		}
	case media.Photo:
		return l.flat(PhotosDir, f)
	case media.Music:
		return l.flat(MusicDir, f)
	default:
		return l.flat(UnsortedDir, f)
	}
}

// Destination returns where f belongs, without disambiguation.
func (l Layout) Destination(f *media.File) string {
	return l.target(f).path(0)
}

func (l Layout) flat(dir string, f *media.File) target {
	stem := classifier.Sanitize(norm.NFC.String(f.BaseName()))
	if stem == "" {
		stem = fallbackStem
	}
	return target{dir: filepath.Join(l.Root, dir), title: stem, ext: f.Ext}
}

func (l Layout) title(raw string) string {
	t := classifier.Sanitize(classifier.Render(raw, l.Dotted))
	if t == "" {
		return fallbackStem
	}
	return t
}
