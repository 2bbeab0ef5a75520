// Package match compiles pattern sets into one of three search backends and
// evaluates records against them.
//
// A Matcher is immutable and shared by all workers. Each worker takes its
// own Scanner, which owns the per-record scratch state.
package match

import (
	"errors"
	"fmt"
	"regexp"

	"bqtools/internal/runutil"
)

// Origin restricts which region of a record a pattern is tried against.
type Origin uint8

const (
	Either Origin = iota
	Primary
	Extended
)

func (o Origin) String() string {
	switch o {
	case Primary:
		return "primary"
	case Extended:
		return "extended"
	}
	return "either"
}

func (o Origin) allows(side int) bool {
	return o == Either || (o == Primary && side == sidePrimary) || (o == Extended && side == sideExtended)
}

const (
	sidePrimary = iota
	sideExtended
)

// Pattern is one search term. Bulk patterns (loaded from files) always
// combine with OR among themselves.
type Pattern struct {
	Text   string
	Origin Origin
	Bulk   bool
}

// Logic combines per-pattern results.
type Logic uint8

const (
	And Logic = iota
	Or
)

// Denominator selects which records count toward the total in count mode.
type Denominator uint8

const (
	// DenomAll counts every record examined.
	DenomAll Denominator = iota
	// DenomSpan counts only records whose primary region overlaps the range.
	DenomSpan
)

// Options configures compilation.
type Options struct {
	Logic       Logic
	Fixed       bool
	Fuzzy       bool
	K           int // edit budget; 0 means 1
	InexactOnly bool
	Invert      bool
	Range       *runutil.Span // nil searches the whole region
	Denominator Denominator
}

// Kind is the backend chosen at compile time.
type Kind uint8

const (
	KindAC Kind = iota
	KindRegex
	KindFuzzy
)

func (k Kind) String() string {
	switch k {
	case KindAC:
		return "aho-corasick"
	case KindRegex:
		return "regex"
	}
	return "fuzzy"
}

// CompileError reports a pattern that cannot be compiled or an invalid
// combination of match options (Pattern is empty then).
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("pattern options: %v", e.Err)
	}
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ErrConflictingModes is wrapped when fixed and fuzzy matching are both requested.
var ErrConflictingModes = errors.New("fixed-string and fuzzy matching are mutually exclusive")

// Matcher is a compiled pattern set.
type Matcher struct {
	kind Kind
	pats []Pattern
	opts Options

	ac  *acAutomaton
	res []*regexp.Regexp
	lit [][]byte

	nbulk int
	span  runutil.Span
}

// Compile classifies and compiles pats. An empty set compiles to a matcher
// that never matches.
func Compile(pats []Pattern, o Options) (*Matcher, error) {
	if o.Fixed && o.Fuzzy {
		return nil, &CompileError{Err: ErrConflictingModes}
	}
	if o.K <= 0 {
		o.K = 1
	}
	m := &Matcher{pats: pats, opts: o, span: runutil.FullSpan}
	if o.Range != nil {
		m.span = *o.Range
	}
	for _, p := range pats {
		if p.Text == "" {
			return nil, &CompileError{Pattern: p.Text, Err: errors.New("empty pattern")}
		}
		if p.Bulk {
			m.nbulk++
		}
	}

	switch {
	case o.Fuzzy:
		m.kind = KindFuzzy
		for _, p := range pats {
			if o.K >= len(p.Text) {
				return nil, &CompileError{Pattern: p.Text, Err: fmt.Errorf("edit distance %d must be smaller than the pattern length", o.K)}
			}
			m.lit = append(m.lit, []byte(p.Text))
		}
	case o.Fixed && allLiteral(pats):
		m.kind = KindAC
		for _, p := range pats {
			m.lit = append(m.lit, []byte(p.Text))
		}
		m.ac = buildAC(m.lit)
	default:
		m.kind = KindRegex
		for _, p := range pats {
			re, err := regexp.Compile(p.Text)
			if err != nil {
				return nil, &CompileError{Pattern: p.Text, Err: err}
			}
			m.res = append(m.res, re)
		}
	}
	return m, nil
}

func allLiteral(pats []Pattern) bool {
	for _, p := range pats {
		if regexp.QuoteMeta(p.Text) != p.Text {
			return false
		}
	}
	return true
}

// Kind reports the selected backend.
func (m *Matcher) Kind() Kind { return m.kind }

// Patterns returns the compiled patterns in index order.
func (m *Matcher) Patterns() []Pattern { return m.pats }

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Len is the number of patterns.
func (m *Matcher) Len() int { return len(m.pats) }
