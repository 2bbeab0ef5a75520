// Package appshell is the process entry shared by the bqtools binaries.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bqtools/internal/appcore"
)

// Command is the signature of a command tree's Execute.
type Command func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// Main runs cmd on os.Args with a context cancelled on SIGINT/SIGTERM and
// exits with its status.
func Main(cmd Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// A closed downstream pipe surfaces as EPIPE on write instead of killing
	// the process, so it can exit cleanly.
	signal.Ignore(syscall.SIGPIPE)

	code := Run(ctx, cmd, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run invokes cmd, showing help for an empty argv. A run that reports
// success after ctx was cancelled exits as interrupted.
func Run(ctx context.Context, cmd Command, argv []string, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		argv = []string{"-h"}
	}
	code := cmd(ctx, argv, stdout, stderr)
	if ctx.Err() != nil && code == appcore.ExitOK {
		code = appcore.ExitInterrupted
	}
	return code
}
