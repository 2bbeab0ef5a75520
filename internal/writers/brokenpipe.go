package writers

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// ErrBrokenPipe marks writes that failed because the reader went away.
var ErrBrokenPipe = errors.New("broken pipe")

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe.
// Useful when downstream consumers (like `head`) close early.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, ErrBrokenPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed))
}

type brokenPipeError struct{ err error }

func (e brokenPipeError) Error() string { return e.err.Error() }
func (e brokenPipeError) Unwrap() []error { return []error{ErrBrokenPipe, e.err} }

// Classify tags broken-pipe failures with ErrBrokenPipe and returns other
// errors unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrBrokenPipe) || !IsBrokenPipe(err) {
		return err
	}
	return brokenPipeError{err: err}
}
