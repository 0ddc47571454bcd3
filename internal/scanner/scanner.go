package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/fsx"
	"github.com/marco/mediaVault/internal/media"
)

// Report summarizes one scan.
type Report struct {
	Roots      []string               `json:"roots"`
	Files      int                    `json:"files"`
	Bytes      int64                  `json:"bytes"`
	ByCategory map[media.Category]int `json:"by_category"`
	Skipped    []media.SkippedPath    `json:"skipped"`
}

// Count fills ByCategory from classified files.
func (r *Report) Count(files []*media.File) {
	r.ByCategory = make(map[media.Category]int, len(media.Categories))
	for _, f := range files {
		r.ByCategory[f.Category]++
	}
}

// VisitFunc receives each media file as the walk finds it. Returning an
// error stops the walk.
type VisitFunc func(file media.RawFile) error

// Scanner handles file system scanning for media files
type Scanner struct {
	fs         afero.Fs
	extensions map[string]bool
	ignore     []string
	logger     *slog.Logger
}

// New creates a new Scanner instance. Extensions are matched
// case-insensitively; ignore patterns use filepath.Match syntax.
func New(fsys afero.Fs, extensions []string, ignorePatterns []string) *Scanner {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Scanner{
		fs:         fsys,
		extensions: exts,
		ignore:     ignorePatterns,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger used for skipped-path warnings.
func (s *Scanner) WithLogger(logger *slog.Logger) *Scanner {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// IsMediaFile checks if a filename has an allow-listed extension
func (s *Scanner) IsMediaFile(filename string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(filename))]
}

// IsIgnored checks p (inside root) against the ignore patterns. A pattern
// matches either the base name or the slash-separated path relative to root.
func (s *Scanner) IsIgnored(root, p string) bool {
	base := filepath.Base(p)
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range s.ignore {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(filepath.ToSlash(pattern), rel); ok {
			return true
		}
	}
	return false
}

// Walk recursively enumerates media files under every root and calls visit
// for each one. It keeps no state between calls, so walking again re-reads
// the filesystem. Unreadable sub-paths are recorded in the report; a root
// that is missing, unreadable or not a directory returns *media.PathError.
func (s *Scanner) Walk(ctx context.Context, roots []string, visit VisitFunc) (*Report, error) {
	report := &Report{Roots: roots}

	for _, root := range roots {
		root = filepath.Clean(root)
		if err := s.checkRoot(root); err != nil {
			return report, err
		}

		err := afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				if p == root {
					return &media.PathError{Path: root, Err: err}
				}
				report.Skipped = append(report.Skipped, media.SkippedPath{Path: p, Reason: err.Error()})
				s.logger.Warn("skipping unreadable path", "path", p, "error", err)
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if info.IsDir() {
				if p != root && s.IsIgnored(root, p) {
					s.logger.Debug("skipping ignored directory", "path", p)
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() || fsx.IsTempName(info.Name()) {
				return nil
			}
			if !s.IsMediaFile(info.Name()) || s.IsIgnored(root, p) {
				return nil
			}

			report.Files++
			report.Bytes += info.Size()
			return visit(media.RawFile{Path: p, Size: info.Size(), ModTime: info.ModTime()})
		})
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

// ScanAll walks every root and returns the combined, path-sorted results.
// Files reachable from more than one root are returned once.
func (s *Scanner) ScanAll(ctx context.Context, roots []string) ([]media.RawFile, *Report, error) {
	var files []media.RawFile
	seen := make(map[string]bool)

	report, err := s.Walk(ctx, roots, func(f media.RawFile) error {
		if seen[f.Path] {
			return nil
		}
		seen[f.Path] = true
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, report, err
	}
	report.Files = len(files)
	report.Bytes = 0
	for _, f := range files {
		report.Bytes += f.Size
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, report, nil
}

func (s *Scanner) checkRoot(root string) error {
	info, err := s.fs.Stat(root)
	if err != nil {
		return &media.PathError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &media.PathError{Path: root, Err: errors.New("not a directory")}
	}
	f, err := s.fs.Open(root)
	if err != nil {
		return &media.PathError{Path: root, Err: err}
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return &media.PathError{Path: root, Err: fmt.Errorf("read directory: %w", err)}
	}
	return nil
}
