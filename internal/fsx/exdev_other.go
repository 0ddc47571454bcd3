//go:build !unix

package fsx

import (
	"errors"
	"syscall"
)

// errNotSameDevice is ERROR_NOT_SAME_DEVICE on Windows.
const errNotSameDevice = syscall.Errno(17)

func isEXDEV(err error) bool {
	return errors.Is(err, errNotSameDevice)
}
