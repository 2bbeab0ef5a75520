package runutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Span is a half-open basepair window [Start, End). End < 0 leaves it open.
type Span struct {
	Start int
	End   int
}

// FullSpan covers every position.
var FullSpan = Span{Start: 0, End: -1}

// IsFull reports whether the span restricts nothing.
func (s Span) IsFull() bool { return s.Start == 0 && s.End < 0 }

func (s Span) String() string {
	switch {
	case s.IsFull():
		return ".."
	case s.End < 0:
		return fmt.Sprintf("%d..", s.Start)
	case s.Start == 0:
		return fmt.Sprintf("..%d", s.End)
	}
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Slice clamps the span to b and returns the window with its offset in b.
// A nil b stays nil so absent regions remain absent.
func (s Span) Slice(b []byte) ([]byte, int) {
	if b == nil {
		return nil, 0
	}
	start := min(s.Start, len(b))
	end := len(b)
	if s.End >= 0 && s.End < end {
		end = s.End
	}
	if end < start {
		end = start
	}
	return b[start:end], start
}

// ParseSpan accepts "..", "start..", "..end" and "start..end".
func ParseSpan(v string) (Span, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == ".." {
		return FullSpan, nil
	}
	lo, hi, ok := strings.Cut(v, "..")
	if !ok {
		return Span{}, fmt.Errorf("invalid range %q (want start..end)", v)
	}
	sp := FullSpan
	var err error
	if lo != "" {
		if sp.Start, err = strconv.Atoi(lo); err != nil || sp.Start < 0 {
			return Span{}, fmt.Errorf("invalid range start %q", lo)
		}
	}
	if hi != "" {
		if sp.End, err = strconv.Atoi(hi); err != nil || sp.End < 0 {
			return Span{}, fmt.Errorf("invalid range end %q", hi)
		}
		if sp.Start > sp.End {
			return Span{}, fmt.Errorf("invalid range %q: start must be <= end", v)
		}
	}
	return sp, nil
}
