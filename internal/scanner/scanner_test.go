package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco/mediaVault/internal/media"
)

var testExts = []string{".mkv", ".mp4", ".avi", ".jpg", ".mp3"}

func writeFiles(t *testing.T, fsys afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(p), 0o644))
	}
}

func paths(files []media.RawFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScanAllFiltersAndSorts(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys,
		"/lib/b/Show.S01E01.mkv",
		"/lib/a/Movie.2001.MP4",
		"/lib/a/notes.txt",
		"/lib/a/.Movie.2001.mp4.tmp-123",
		"/lib/c/song.mp3",
	)

	s := New(fsys, testExts, nil)
	files, report, err := s.ScanAll(context.Background(), []string{"/lib"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/lib/a/Movie.2001.MP4",
		"/lib/b/Show.S01E01.mkv",
		"/lib/c/song.mp3",
	}, paths(files))
	assert.Equal(t, 3, report.Files)
	assert.Empty(t, report.Skipped)

	for _, f := range files {
		assert.Equal(t, int64(len(f.Path)), f.Size)
	}
}

func TestScanAllIgnorePatterns(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys,
		"/lib/keep.mkv",
		"/lib/Extras/bonus.mkv",
		"/lib/sample-keep.mkv",
		"/lib/deep/cache/x.mkv",
	)

	s := New(fsys, testExts, []string{"Extras", "sample-*", "deep/cache"})
	files, _, err := s.ScanAll(context.Background(), []string{"/lib"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lib/keep.mkv"}, paths(files))
}

func TestScanAllOverlappingRootsYieldFilesOnce(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/lib/movies/a.mkv", "/lib/b.mkv")

	s := New(fsys, testExts, nil)
	files, report, err := s.ScanAll(context.Background(), []string{"/lib", "/lib/movies"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lib/b.mkv", "/lib/movies/a.mkv"}, paths(files))
	assert.Equal(t, 2, report.Files)
}

func TestScanAllRootErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/lib/file.mkv")
	s := New(fsys, testExts, nil)

	tests := []struct {
		name string
		root string
	}{
		{"missing", "/nope"},
		{"not a directory", "/lib/file.mkv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.ScanAll(context.Background(), []string{tt.root})
			var pathErr *media.PathError
			require.ErrorAs(t, err, &pathErr)
			assert.Equal(t, tt.root, pathErr.Path)
		})
	}
}

// unreadableFs fails to open one directory.
type unreadableFs struct {
	afero.Fs
	dir string
}

func (u unreadableFs) Open(name string) (afero.File, error) {
	if name == u.dir {
		return nil, os.ErrPermission
	}
	return u.Fs.Open(name)
}

func TestScanAllRecordsUnreadableSubdirectory(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, "/lib/ok/a.mkv", "/lib/locked/b.mkv")

	s := New(unreadableFs{Fs: mem, dir: "/lib/locked"}, testExts, nil)
	files, report, err := s.ScanAll(context.Background(), []string{"/lib"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/lib/ok/a.mkv"}, paths(files))
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "/lib/locked", report.Skipped[0].Path)
}

func TestScanAllCancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/lib/a.mkv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(fsys, testExts, nil).ScanAll(ctx, []string{"/lib"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWalkStopsOnVisitError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, "/lib/a.mkv", "/lib/b.mkv")

	stop := errors.New("stop")
	calls := 0
	_, err := New(fsys, testExts, nil).Walk(context.Background(), []string{"/lib"}, func(media.RawFile) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestIsMediaFile(t *testing.T) {
	s := New(afero.NewMemMapFs(), []string{".MKV", ".jpg"}, nil)

	tests := []struct {
		filename string
		want     bool
	}{
		{"movie.mkv", true},
		{"movie.MkV", true},
		{"photo.JPG", true},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := s.IsMediaFile(tt.filename); got != tt.want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestReportCount(t *testing.T) {
	r := &Report{}
	r.Count([]*media.File{
		{Category: media.Movie},
		{Category: media.Movie},
		{Category: media.Unsorted},
	})
	assert.Equal(t, 2, r.ByCategory[media.Movie])
	assert.Equal(t, 1, r.ByCategory[media.Unsorted])
	assert.Equal(t, 0, r.ByCategory[media.Photo])
}
