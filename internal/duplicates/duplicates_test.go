package duplicates

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco/mediaVault/internal/config"
	"github.com/marco/mediaVault/internal/hasher"
	"github.com/marco/mediaVault/internal/media"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	fs    afero.Fs
	files []*media.File
}

func (fx *fixture) add(t *testing.T, path, content string, age time.Duration) *media.File {
	t.Helper()
	mt := base.Add(age)
	require.NoError(t, afero.WriteFile(fx.fs, path, []byte(content), 0o644))
	require.NoError(t, fx.fs.Chtimes(path, mt, mt))
	f := &media.File{Path: path, Size: int64(len(content)), ModTime: mt}
	fx.files = append(fx.files, f)
	return f
}

func newFinder(t *testing.T, fsys afero.Fs, criteria string) *Finder {
	t.Helper()
	h, err := hasher.New(fsys, "sha256", 0)
	require.NoError(t, err)
	f, err := NewFinder(hasher.NewPool(h, 3), criteria)
	require.NoError(t, err)
	return f
}

func groupPaths(g Group) []string {
	var out []string
	for _, m := range g.Members() {
		out = append(out, m.Path)
	}
	return out
}

func TestFindGroupsIdenticalContentOnly(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/a/movie.mkv", "AAAAAAAA", 0)
	fx.add(t, "/b/copy of movie.mkv", "AAAAAAAA", time.Hour)
	fx.add(t, "/c/renamed.mp4", "AAAAAAAA", 2*time.Hour)
	fx.add(t, "/d/one-byte-off.mkv", "AAAAAAAB", 0)
	fx.add(t, "/e/unique.mkv", "short", 0)

	report, err := newFinder(t, fx.fs, config.KeepOldest).Find(context.Background(), fx.files)
	require.NoError(t, err)

	require.Len(t, report.Groups, 1)
	g := report.Groups[0]
	assert.Equal(t, []string{"/a/movie.mkv", "/b/copy of movie.mkv", "/c/renamed.mp4"}, groupPaths(g))
	assert.Equal(t, int64(16), g.Reclaimable())
	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 4, report.Hashed, "the unique size is never hashed")
	assert.Equal(t, 2, report.Candidates())
}

func TestFindSkipsUnreadableFiles(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/a.mkv", "same", 0)
	fx.add(t, "/b.mkv", "same", 0)
	fx.files = append(fx.files, &media.File{Path: "/vanished.mkv", Size: 4, ModTime: base})

	report, err := newFinder(t, fx.fs, config.KeepLargest).Find(context.Background(), fx.files)
	require.NoError(t, err)

	require.Len(t, report.HashFailed, 1)
	assert.Equal(t, "/vanished.mkv", report.HashFailed[0].Path)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, []string{"/a.mkv", "/b.mkv"}, groupPaths(report.Groups[0]))
}

func TestFindOrdersGroupsByReclaimable(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/small1", "xx", 0)
	fx.add(t, "/small2", "xx", 0)
	fx.add(t, "/big1", "yyyyyy", 0)
	fx.add(t, "/big2", "yyyyyy", 0)

	report, err := newFinder(t, fx.fs, config.KeepHighestQuality).Find(context.Background(), fx.files)
	require.NoError(t, err)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, "/big1", report.Groups[0].Keeper.Path)
	assert.Equal(t, "/small1", report.Groups[1].Keeper.Path)
	assert.Equal(t, int64(8), report.Reclaimable())
}

func TestNewFinderRejectsUnknownCriteria(t *testing.T) {
	h, err := hasher.New(afero.NewMemMapFs(), "sha256", 0)
	require.NoError(t, err)
	_, err = NewFinder(hasher.NewPool(h, 1), "prettiest")
	assert.Error(t, err)
}

func TestSelectKeeper(t *testing.T) {
	big := &media.File{Path: "/z/big", Size: 10, ModTime: base.Add(time.Hour)}
	bigOld := &media.File{Path: "/y/big-old", Size: 10, ModTime: base}
	small := &media.File{Path: "/a/small", Size: 5, ModTime: base.Add(-time.Hour)}
	newest := &media.File{Path: "/b/newest", Size: 5, ModTime: base.Add(2 * time.Hour)}

	tests := []struct {
		criteria string
		want     string
	}{
		{config.KeepHighestQuality, "/y/big-old"},
		{config.KeepLargest, "/y/big-old"},
		{config.KeepSmallest, "/a/small"},
		{config.KeepOldest, "/a/small"},
		{config.KeepNewest, "/b/newest"},
	}
	for _, tt := range tests {
		t.Run(tt.criteria, func(t *testing.T) {
			keeper, candidates, err := SelectKeeper([]*media.File{big, bigOld, small, newest}, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keeper.Path)
			assert.Len(t, candidates, 3)
		})
	}
}

func TestSelectKeeperIsOrderIndependent(t *testing.T) {
	// identical size and time: only the path decides
	a := &media.File{Path: "/a", Size: 1, ModTime: base}
	b := &media.File{Path: "/b", Size: 1, ModTime: base}
	c := &media.File{Path: "/c", Size: 1, ModTime: base}

	orders := [][]*media.File{{a, b, c}, {c, b, a}, {b, c, a}, {c, a, b}}
	for _, criteria := range []string{config.KeepHighestQuality, config.KeepSmallest, config.KeepOldest, config.KeepNewest} {
		for _, members := range orders {
			before := append([]*media.File(nil), members...)
			keeper, candidates, err := SelectKeeper(members, criteria)
			require.NoError(t, err)
			assert.Equal(t, "/a", keeper.Path, criteria)
			assert.Equal(t, "/b", candidates[0].Path, criteria)
			assert.Equal(t, before, members, "input must not be reordered")
		}
	}
}

func TestSelectKeeperErrors(t *testing.T) {
	_, _, err := SelectKeeper(nil, config.KeepLargest)
	assert.Error(t, err)
	_, _, err = SelectKeeper([]*media.File{{Path: "/a"}}, "bogus")
	assert.Error(t, err)
}

func detect(t *testing.T, fx *fixture) []Group {
	t.Helper()
	report, err := newFinder(t, fx.fs, config.KeepOldest).Find(context.Background(), fx.files)
	require.NoError(t, err)
	return report.Groups
}

func TestRemoveDeletesCandidatesOnly(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/dup1.mkv", "same", time.Hour)
	fx.add(t, "/dup2.mkv", "same", 2*time.Hour)

	report, err := NewRemover(fx.fs).Remove(context.Background(), detect(t, fx), false)
	require.NoError(t, err)

	assert.Len(t, report.Removed, 2)
	assert.Equal(t, int64(8), report.BytesReclaimed)
	ok, _ := afero.Exists(fx.fs, "/keep.mkv")
	assert.True(t, ok)
	for _, p := range []string{"/dup1.mkv", "/dup2.mkv"} {
		ok, _ := afero.Exists(fx.fs, p)
		assert.False(t, ok, p)
	}
}

func TestRemoveDryRunTouchesNothing(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/dup.mkv", "same", time.Hour)

	report, err := NewRemover(afero.NewReadOnlyFs(fx.fs)).Remove(context.Background(), detect(t, fx), true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, "/dup.mkv", report.Removed[0].Path)

	ok, _ := afero.Exists(fx.fs, "/dup.mkv")
	assert.True(t, ok)
}

// stubbornFs refuses to delete one path.
type stubbornFs struct {
	afero.Fs
	path string
}

func (s stubbornFs) Remove(name string) error {
	if name == s.path {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
	}
	return s.Fs.Remove(name)
}

func TestRemovePartialFailure(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/locked.mkv", "same", time.Hour)
	fx.add(t, "/dup.mkv", "same", 2*time.Hour)
	groups := detect(t, fx)

	report, err := NewRemover(stubbornFs{Fs: fx.fs, path: "/locked.mkv"}).Remove(context.Background(), groups, false)
	require.ErrorIs(t, err, media.ErrPartialFailure)

	var pf *media.PartialFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 1, pf.Failed)
	assert.Equal(t, 2, pf.Total)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, "/locked.mkv", report.Failed[0].Path)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, "/dup.mkv", report.Removed[0].Path)
}

func TestRemoveSkipsGroupWithMissingKeeper(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/dup.mkv", "same", time.Hour)
	groups := detect(t, fx)
	require.NoError(t, fx.fs.Remove("/keep.mkv"))

	_, err := NewRemover(fx.fs).Remove(context.Background(), groups, false)
	assert.ErrorIs(t, err, media.ErrPartialFailure)

	ok, _ := afero.Exists(fx.fs, "/dup.mkv")
	assert.True(t, ok, "the last copy must survive")
}

func TestRemoveRefusesChangedCandidate(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/dup.mkv", "same", time.Hour)
	groups := detect(t, fx)

	// rewritten after detection
	require.NoError(t, afero.WriteFile(fx.fs, "/dup.mkv", []byte("different"), 0o644))

	report, err := NewRemover(fx.fs).Remove(context.Background(), groups, false)
	require.ErrorIs(t, err, media.ErrPartialFailure)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "changed since detection", report.Failed[0].Reason)

	ok, _ := afero.Exists(fx.fs, "/dup.mkv")
	assert.True(t, ok)
}

func TestRemoveReportsAlreadyDeletedCandidate(t *testing.T) {
	for _, dryRun := range []bool{false, true} {
		fx := &fixture{fs: afero.NewMemMapFs()}
		fx.add(t, "/keep.mkv", "same", 0)
		fx.add(t, "/dup.mkv", "same", time.Hour)
		fx.add(t, "/dup2.mkv", "same", 2*time.Hour)
		groups := detect(t, fx)
		require.NoError(t, fx.fs.Remove("/dup.mkv"))

		report, err := NewRemover(fx.fs).Remove(context.Background(), groups, dryRun)
		require.ErrorIs(t, err, media.ErrPartialFailure)

		var pf *media.PartialFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, 2, pf.Total)
		require.Len(t, report.Removed, 1)
		assert.Equal(t, "/dup2.mkv", report.Removed[0].Path)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, Failure{Path: "/dup.mkv", Reason: ReasonAlreadyRemoved}, report.Failed[0])
	}
}

// vanishingFs reports a file as gone when it is removed.
type vanishingFs struct {
	afero.Fs
	path string
}

func (v vanishingFs) Remove(name string) error {
	if name == v.path {
		_ = v.Fs.Remove(name)
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	return v.Fs.Remove(name)
}

func TestRemoveReportsCandidateDeletedDuringRemoval(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/dup.mkv", "same", time.Hour)
	groups := detect(t, fx)

	report, err := NewRemover(vanishingFs{Fs: fx.fs, path: "/dup.mkv"}).Remove(context.Background(), groups, false)
	require.ErrorIs(t, err, media.ErrPartialFailure)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, ReasonAlreadyRemoved, report.Failed[0].Reason)
}

func TestPlanSaveLoad(t *testing.T) {
	fx := &fixture{fs: afero.NewMemMapFs()}
	fx.add(t, "/keep.mkv", "same", 0)
	fx.add(t, "/dup.mkv", "same", time.Hour)

	report, err := newFinder(t, fx.fs, config.KeepOldest).Find(context.Background(), fx.files)
	require.NoError(t, err)

	plan := NewPlan(report, []string{"/"})
	require.NoError(t, SavePlan(fx.fs, "/plans/dups.json", plan))

	loaded, err := LoadPlan(fx.fs, "/plans/dups.json")
	require.NoError(t, err)
	assert.Equal(t, plan.RunID, loaded.RunID)
	assert.Equal(t, config.KeepOldest, loaded.Criteria)

	groups := loaded.ToGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, "/keep.mkv", groups[0].Keeper.Path)
	assert.Equal(t, "/dup.mkv", groups[0].Candidates[0].Path)
	d, ok := groups[0].Candidates[0].Digest()
	assert.True(t, ok)
	assert.Equal(t, report.Groups[0].Digest, d)

	_, err = NewRemover(fx.fs).Remove(context.Background(), groups, false)
	require.NoError(t, err)
	ok, _ = afero.Exists(fx.fs, "/dup.mkv")
	assert.False(t, ok)
}

func TestLoadPlanRejectsOtherTypes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/p.json", []byte(`{"version":1,"type":"organize"}`), 0o644))
	_, err := LoadPlan(fsys, "/p.json")
	assert.Error(t, err)
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		higher string
	}{
		{"Movie.2001.2160p.WEB-DL.mkv", "2160P WEB-DL", "Movie.2001.1080p.BluRay.mkv"},
		{"Movie_2001_4K.mkv", "2160P", "Movie.2001.720p.mkv"},
		{"Movie.2001.1080p.BluRay.mkv", "1080P BluRay", "Movie.2001.DVDRip.mkv"},
	}
	for _, tt := range tests {
		q := ParseQuality("/lib/" + tt.name)
		assert.Equal(t, tt.want, q.String(), tt.name)
		assert.Greater(t, q.Score, ParseQuality(tt.higher).Score, tt.name)
	}
	assert.Equal(t, "Unknown", ParseQuality("home video.mp4").String())
}
