// Package hasher computes content digests for media files, reading in
// fixed-size chunks so memory use does not grow with file size.
package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/marco/mediaVault/internal/cache"
	"github.com/marco/mediaVault/internal/media"
)

// DefaultChunkSize is the read buffer used when none is configured.
const DefaultChunkSize = 64 * 1024

// Hasher computes digests with one algorithm and an optional cache.
type Hasher struct {
	fs        afero.Fs
	algorithm string
	newHash   func() hash.Hash
	chunkSize int
	cache     cache.Cache
	logger    *slog.Logger
}

// New creates a Hasher. algorithm is sha256, sha1 or md5.
func New(fsys afero.Fs, algorithm string, chunkSize int) (*Hasher, error) {
	algorithm = strings.ToLower(algorithm)
	var newHash func() hash.Hash
	switch algorithm {
	case "sha256", "":
		algorithm = "sha256"
		newHash = sha256.New
	case "sha1":
		newHash = sha1.New
	case "md5":
		newHash = md5.New
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{
		fs:        fsys,
		algorithm: algorithm,
		newHash:   newHash,
		chunkSize: chunkSize,
		logger:    slog.Default(),
	}, nil
}

// WithCache makes the hasher consult c before reading a file.
func (h *Hasher) WithCache(c cache.Cache) *Hasher {
	h.cache = c
	return h
}

// WithLogger sets the logger.
func (h *Hasher) WithLogger(logger *slog.Logger) *Hasher {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Algorithm returns the configured algorithm name.
func (h *Hasher) Algorithm() string { return h.algorithm }

// Sum reads path and returns its hex digest. The cache is not consulted.
func (h *Hasher) Sum(path string) (string, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum := h.newHash()
	buf := make([]byte, h.chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Ensure returns the digest of file, computing and recording it if this is
// the first request. A failure is returned as *media.HashError.
func (h *Hasher) Ensure(file *media.File) (string, error) {
	if d, ok := file.Digest(); ok {
		return d, nil
	}

	key := cache.Key{Path: file.Path, Size: file.Size, ModTime: file.ModTime, Algorithm: h.algorithm}
	if h.cache != nil {
		if d, ok := h.cache.Get(key); ok {
			file.SetDigest(d)
			return h.stored(file), nil
		}
	}

	d, err := h.Sum(file.Path)
	if err != nil {
		return "", &media.HashError{Path: file.Path, Err: err}
	}
	if file.SetDigest(d) && h.cache != nil {
		if err := h.cache.Set(key, d); err != nil {
			h.logger.Warn("failed to cache digest", "path", file.Path, "error", err)
		}
	}
	return h.stored(file), nil
}

func (h *Hasher) stored(file *media.File) string {
	d, _ := file.Digest()
	return d
}
