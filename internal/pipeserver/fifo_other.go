//go:build !unix

package pipeserver

import (
	"errors"
)

// ErrUnsupported is returned on platforms without named pipes.
var ErrUnsupported = errors.New("named pipes are not supported on this platform")

// DefaultOpener reports that external consumers cannot attach here.
func DefaultOpener() (Opener, error) {
	return nil, &SetupError{Path: "", Err: ErrUnsupported}
}
