package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created in the output root while a run holds it.
const LockFileName = ".mediavault.lock"

// ErrLocked means another run holds the output root.
var ErrLocked = errors.New("output root is locked by another run")

// Lock guards an output root against concurrent runs.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock for root without waiting. It returns ErrLocked
// if another process holds it.
func AcquireLock(root string) (*Lock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	fl := flock.New(filepath.Join(root, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", root, ErrLocked)
	}
	return &Lock{lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.lock.Path() }

// Release drops the lock.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
