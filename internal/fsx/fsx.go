// Package fsx holds the filesystem primitives that relocate media files
// without ever leaving a partial file at the destination.
package fsx

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/afero"
)

// ErrDestinationExists is returned when a move would replace a file and
// replacement was not requested.
var ErrDestinationExists = errors.New("destination already exists")

// CrossDeviceError wraps a failed copy fallback after rename hit EXDEV.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device move %q -> %q: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// InsufficientSpaceError reports that the destination filesystem cannot hold
// the copy a cross-device move needs.
type InsufficientSpaceError struct {
	Dir   string
	Need  uint64
	Avail uint64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("not enough space in %s: need %d bytes, %d available", e.Dir, e.Need, e.Avail)
}

// TempPrefix marks in-flight copies. Scanners skip names that start with it.
const TempPrefix = "."

// TempMarker is the infix of every temporary name created by Mover.
const TempMarker = ".tmp-"

// IsTempName reports whether name looks like an in-flight copy.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, TempPrefix) && strings.Contains(name, TempMarker)
}

// Mover relocates files on an afero filesystem.
type Mover struct {
	fs afero.Fs

	// Swappable so tests can force the EXDEV path and disk probes.
	rename    func(oldpath, newpath string) error
	freeSpace func(dir string) (uint64, error)
}

// NewMover returns a Mover for fsys. Free space is only probed on the real OS
// filesystem.
func NewMover(fsys afero.Fs) *Mover {
	m := &Mover{fs: fsys, rename: fsys.Rename}
	if _, ok := fsys.(*afero.OsFs); ok {
		m.freeSpace = osFreeSpace
	}
	return m
}

// Move relocates src to dst. A same-device move is a single rename, which is
// already atomic. Across devices the content is copied to a temporary file
// next to dst, synced, verified and renamed into place before src is removed.
func (m *Mover) Move(src, dst string, replace bool) error {
	dir := filepath.Dir(dst)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	if !replace {
		if _, err := m.fs.Stat(dst); err == nil {
			return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	err := m.rename(src, dst)
	if err == nil {
		return nil
	}
	if !isEXDEV(err) {
		return err
	}
	if err := m.copyAcross(src, dst); err != nil {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	return nil
}

// Remove deletes a single file.
func (m *Mover) Remove(path string) error {
	return m.fs.Remove(path)
}

func (m *Mover) copyAcross(src, dst string) error {
	info, err := m.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dir := filepath.Dir(dst)
	if m.freeSpace != nil {
		avail, err := m.freeSpace(dir)
		if err == nil && avail < uint64(info.Size()) {
			return &InsufficientSpaceError{Dir: dir, Need: uint64(info.Size()), Avail: avail}
		}
	}

	tmpName, err := m.copyToTemp(src, dir, filepath.Base(dst), info)
	if err != nil {
		return err
	}

	// A plain rename: tmp and dst share a directory.
	if err := m.fs.Rename(tmpName, dst); err != nil {
		_ = m.fs.Remove(tmpName)
		return err
	}

	if err := m.fs.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// copyToTemp streams src into a temporary file inside dir and verifies the
// copy by size and sha256. The temp file is removed on any failure.
func (m *Mover) copyToTemp(src, dir, name string, info os.FileInfo) (tmpName string, err error) {
	in, err := m.fs.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := afero.TempFile(m.fs, dir, TempPrefix+name+TempMarker+"*")
	if err != nil {
		return "", err
	}
	tmpName = tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = m.fs.Remove(tmpName)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return "", err
	}
	if written != info.Size() {
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return "", errors.New("copy hash mismatch")
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	_ = m.fs.Chtimes(tmpName, info.ModTime(), info.ModTime())
	return tmpName, nil
}

// WriteFileAtomic writes data to dir/name through a temporary file and a
// rename, replacing any existing file.
func WriteFileAtomic(fsys afero.Fs, dir, name string, data []byte) (err error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(fsys, dir, TempPrefix+name+TempMarker+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = fsys.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return fsys.Rename(tmpName, filepath.Join(dir, name))
}

func osFreeSpace(dir string) (uint64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
