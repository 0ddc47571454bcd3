package media

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryText(t *testing.T) {
	for _, c := range Categories {
		text, err := c.MarshalText()
		require.NoError(t, err)

		var back Category
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, c, back)
	}

	var c Category
	assert.Error(t, c.UnmarshalText([]byte("podcast")))
	assert.Equal(t, "unsorted", Category(42).String())
}

func TestSetDigestFirstWins(t *testing.T) {
	f := &File{Path: "/a.mkv"}
	_, ok := f.Digest()
	assert.False(t, ok)

	var wg sync.WaitGroup
	stored := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := fmt.Sprintf("digest-%d", i)
			if f.SetDigest(d) {
				stored <- d
			}
		}(i)
	}
	wg.Wait()
	close(stored)

	var winners []string
	for d := range stored {
		winners = append(winners, d)
	}
	require.Len(t, winners, 1)
	d, ok := f.Digest()
	assert.True(t, ok)
	assert.Equal(t, winners[0], d)
}

func TestBaseNameAndExt(t *testing.T) {
	f := &File{Path: "/lib/Heat.1995.MKV"}
	assert.Equal(t, "Heat.1995", f.BaseName())
	assert.Equal(t, ".mkv", RawFile{Path: f.Path}.Ext())
}

func TestPartialFailureMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("run: %w", &PartialFailure{Op: "organize", Failed: 2, Total: 5})
	assert.ErrorIs(t, err, ErrPartialFailure)
	assert.Equal(t, "run: organize: 2 of 5 operations failed", err.Error())

	var pf *PartialFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, 2, pf.Failed)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "destination /out/a.mkv exists with different content",
		(&CollisionError{Destination: "/out/a.mkv"}).Error())
	assert.Equal(t, "destination /out/a.mkv: no free name after 999 attempts",
		(&CollisionError{Destination: "/out/a.mkv", Attempts: 999}).Error())

	herr := &HashError{Path: "/a", Err: errors.New("boom")}
	assert.ErrorContains(t, herr, "hash /a: boom")
	assert.Equal(t, "boom", errors.Unwrap(herr).Error())
}
