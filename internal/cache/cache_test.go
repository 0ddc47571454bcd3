package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() Key {
	return Key{
		Path:      "/lib/movie.mkv",
		Size:      1024,
		ModTime:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Algorithm: "sha256",
	}
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "nested", "digests.db"))
	require.NoError(t, err)
	defer c.Close()

	key := testKey()
	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Set(key, "abc"))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "abc", got)

	require.NoError(t, c.Set(key, "def"))
	got, _ = c.Get(key)
	assert.Equal(t, "def", got)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteCacheMissesChangedFile(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "digests.db"))
	require.NoError(t, err)
	defer c.Close()

	key := testKey()
	require.NoError(t, c.Set(key, "abc"))

	grown := key
	grown.Size++
	_, ok := c.Get(grown)
	assert.False(t, ok)

	touched := key
	touched.ModTime = key.ModTime.Add(time.Second)
	_, ok = c.Get(touched)
	assert.False(t, ok)

	other := key
	other.Algorithm = "md5"
	_, ok = c.Get(other)
	assert.False(t, ok)
}

func TestSQLiteCacheClearAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.db")
	c, err := NewSQLiteCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(testKey(), "abc"))
	require.NoError(t, c.Close())

	c, err = NewSQLiteCache(path)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get(testKey())
	assert.True(t, ok, "entry survives reopen")

	require.NoError(t, c.Clear())
	_, ok = c.Get(testKey())
	assert.False(t, ok)
}

func TestLayeredFillsMemoryFromBacking(t *testing.T) {
	backing, err := NewSQLiteCache(filepath.Join(t.TempDir(), "digests.db"))
	require.NoError(t, err)
	require.NoError(t, backing.Set(testKey(), "abc"))

	l, err := NewLayered(backing, 8)
	require.NoError(t, err)
	defer l.Close()

	got, ok := l.Get(testKey())
	require.True(t, ok)
	assert.Equal(t, "abc", got)
	assert.Equal(t, 1, l.mem.Len())
}

func TestLayeredMemoryOnly(t *testing.T) {
	l, err := NewLayered(nil, 0)
	require.NoError(t, err)

	key := testKey()
	require.NoError(t, l.Set(key, "abc"))

	local := key
	local.ModTime = key.ModTime.In(time.FixedZone("X", 3600))
	got, ok := l.Get(local)
	require.True(t, ok, "same instant in another zone hits")
	assert.Equal(t, "abc", got)

	require.NoError(t, l.Clear())
	_, ok = l.Get(key)
	assert.False(t, ok)
	assert.NoError(t, l.Close())
}
