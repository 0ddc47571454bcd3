package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the number of digests kept in memory by NewLayered.
const DefaultMemorySize = 4096

// Layered fronts a persistent cache with a bounded in-memory LRU.
type Layered struct {
	mem     *lru.Cache[memKey, string]
	backing Cache
}

// memKey is Key with the time flattened so equal instants compare equal.
type memKey struct {
	path      string
	size      int64
	modTime   int64
	algorithm string
}

func toMemKey(k Key) memKey {
	return memKey{path: k.Path, size: k.Size, modTime: k.ModTime.UnixNano(), algorithm: k.Algorithm}
}

// NewLayered wraps backing. backing may be nil for a memory-only cache.
func NewLayered(backing Cache, size int) (*Layered, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	mem, err := lru.New[memKey, string](size)
	if err != nil {
		return nil, err
	}
	return &Layered{mem: mem, backing: backing}, nil
}

func (l *Layered) Get(key Key) (string, bool) {
	if d, ok := l.mem.Get(toMemKey(key)); ok {
		return d, true
	}
	if l.backing == nil {
		return "", false
	}
	d, ok := l.backing.Get(key)
	if ok {
		l.mem.Add(toMemKey(key), d)
	}
	return d, ok
}

func (l *Layered) Set(key Key, digest string) error {
	l.mem.Add(toMemKey(key), digest)
	if l.backing == nil {
		return nil
	}
	return l.backing.Set(key, digest)
}

func (l *Layered) Clear() error {
	l.mem.Purge()
	if l.backing == nil {
		return nil
	}
	return l.backing.Clear()
}

func (l *Layered) Close() error {
	if l.backing == nil {
		return nil
	}
	return l.backing.Close()
}
