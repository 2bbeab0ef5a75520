// Package appcore runs command bodies and maps their outcome to the
// process exit status.
package appcore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bqtools/internal/writers"
)

// Exit statuses.
const (
	ExitOK          = 0
	ExitUsage       = 2
	ExitRuntime     = 3
	ExitInterrupted = 130
)

// UsageError marks invalid flags or arguments.
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Usagef builds a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps err to an exit status. A reader that went away early
// (e.g. `| head`) is not a failure.
func ExitCode(err error) int {
	var ue *UsageError
	switch {
	case err == nil:
		return ExitOK
	case writers.IsBrokenPipe(err):
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &ue):
		return ExitUsage
	}
	return ExitRuntime
}

// Run executes body and reports a failure on stderr.
func Run(ctx context.Context, stderr io.Writer, body func(context.Context) error) int {
	err := body(ctx)
	code := ExitCode(err)
	if code == ExitUsage || code == ExitRuntime {
		_, _ = fmt.Fprintln(stderr, "error:", err)
	}
	if code == ExitOK && ctx.Err() != nil {
		code = ExitInterrupted
	}
	return code
}
