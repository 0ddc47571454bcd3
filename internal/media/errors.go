package media

import (
	"errors"
	"fmt"
)

// ErrPartialFailure is matched by errors.Is for every *PartialFailure.
var ErrPartialFailure = errors.New("partial failure")

// PathError reports a root that is missing, unreadable or not a directory.
// It aborts the run.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("root %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// SkippedPath is a sub-path the scanner could not read. It is reported, not
// returned as an error.
type SkippedPath struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// HashError records a file whose content could not be read during hashing.
type HashError struct {
	Path string
	Err  error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("hash %s: %v", e.Path, e.Err)
}

func (e *HashError) Unwrap() error { return e.Err }

// CollisionError means a destination holds different content and no
// alternative name could be used. Attempts is zero when disambiguation was
// not tried, as for sidecars.
type CollisionError struct {
	Destination string
	Attempts    int
}

func (e *CollisionError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("destination %s exists with different content", e.Destination)
	}
	return fmt.Sprintf("destination %s: no free name after %d attempts", e.Destination, e.Attempts)
}

// PartialFailure summarizes a batch in which some per-file operations failed.
// The batch still ran to completion for the other files.
type PartialFailure struct {
	Op     string
	Failed int
	Total  int
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s: %d of %d operations failed", e.Op, e.Failed, e.Total)
}

func (e *PartialFailure) Is(target error) bool {
	return target == ErrPartialFailure
}
