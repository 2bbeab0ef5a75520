// Package cliutil holds positional-argument helpers shared by the commands.
package cliutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrStdinTwice is returned when "-" appears more than once among the inputs.
var ErrStdinTwice = errors.New("standard input (-) can only be read once")

func hasGlobMeta(s string) bool { return strings.ContainsAny(s, "*?[") }

// ExpandPositionals expands any globs among path-like positionals, keeping
// the order given. Matches of one glob are sorted.
func ExpandPositionals(posArgs []string) ([]string, error) {
	var out []string
	stdin := false
	for _, a := range posArgs {
		if a == "-" {
			if stdin {
				return nil, ErrStdinTwice
			}
			stdin = true
			out = append(out, a)
			continue
		}
		if !hasGlobMeta(a) {
			out = append(out, a)
			continue
		}
		m, err := filepath.Glob(a)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %v", a, err)
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("no input matched %q", a)
		}
		out = append(out, m...)
	}
	return out, nil
}

// IsStdin reports whether path names standard input.
func IsStdin(path string) bool { return path == "" || path == "-" }
