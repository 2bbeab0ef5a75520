// Package logging builds the stderr logger every command carries in its
// context.
package logging

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the named level. quiet raises the
// level to error.
func New(w io.Writer, level string, quiet bool) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if quiet {
		lvl = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:  lvl,
		Prefix: "bqtools",
	}), nil
}

// Attach returns ctx carrying logger; log.FromContext retrieves it.
func Attach(ctx context.Context, logger *log.Logger) context.Context {
	return log.WithContext(ctx, logger)
}
