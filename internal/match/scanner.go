package match

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Interval is a half-open hit [Start, End) in region coordinates.
type Interval struct {
	Start, End int
}

// Scanner evaluates records against a Matcher. It is not safe for
// concurrent use; every worker takes its own.
type Scanner struct {
	m *Matcher

	hit    *bitset.BitSet // pattern i occurred in an eligible region
	active *bitset.BitSet // pattern i had an eligible region present

	collect bool
	hits    [2][]Interval
	fz      fuzzyScratch
}

// NewScanner returns worker-local scratch for m.
func (m *Matcher) NewScanner() *Scanner {
	n := uint(len(m.pats))
	return &Scanner{m: m, hit: bitset.New(n), active: bitset.New(n)}
}

// CollectHits makes Match record hit intervals for Hits.
func (s *Scanner) CollectHits(on bool) { s.collect = on }

// Match reports whether the record matches under the configured logic and
// invert flag. extended is nil for unpaired records.
func (s *Scanner) Match(primary, extended []byte) bool {
	if len(s.m.pats) == 0 {
		return false
	}
	s.scan(primary, extended, s.collect)
	ok := s.combine()
	if s.m.opts.Invert {
		ok = !ok
	}
	return ok
}

// Count adds each pattern's record-level indicator into counts (len = number
// of patterns): 1 if the pattern occurs, or with Invert 1 if it does not.
// It reports whether the record belongs in the denominator; records that do
// not are left out of counts too.
func (s *Scanner) Count(primary, extended []byte, counts []uint64) bool {
	if s.m.opts.Denominator == DenomSpan && !s.m.span.IsFull() {
		if region, _ := s.m.span.Slice(primary); len(region) == 0 {
			return false
		}
	}
	s.scan(primary, extended, false)
	inv := s.m.opts.Invert
	for i := range s.m.pats {
		if s.hit.Test(uint(i)) != inv {
			counts[i]++
		}
	}
	return true
}

// Hits returns the merged hit intervals of the last Match, in full-region
// coordinates. Only populated when CollectHits is on.
func (s *Scanner) Hits() (primary, extended []Interval) {
	return merge(s.hits[sidePrimary]), merge(s.hits[sideExtended])
}

func merge(iv []Interval) []Interval {
	if len(iv) < 2 {
		return iv
	}
	sort.Slice(iv, func(i, j int) bool { return iv[i].Start < iv[j].Start })
	out := iv[:1]
	for _, x := range iv[1:] {
		last := &out[len(out)-1]
		if x.Start <= last.End {
			if x.End > last.End {
				last.End = x.End
			}
			continue
		}
		out = append(out, x)
	}
	return out
}

// combine applies AND/OR over active patterns. Bulk patterns form their own
// OR group which must also pass when present.
func (s *Scanner) combine() bool {
	var cliActive, bulkActive int
	cliAny, cliAll, bulkAny := false, true, false
	for i, p := range s.m.pats {
		if !s.active.Test(uint(i)) {
			continue
		}
		h := s.hit.Test(uint(i))
		if p.Bulk {
			bulkActive++
			bulkAny = bulkAny || h
			continue
		}
		cliActive++
		cliAny = cliAny || h
		cliAll = cliAll && h
	}
	switch {
	case cliActive == 0 && bulkActive == 0:
		return false
	case cliActive == 0:
		return bulkAny
	}
	cli := cliAll
	if s.m.opts.Logic == Or {
		cli = cliAny
	}
	return cli && (bulkActive == 0 || bulkAny)
}

func (s *Scanner) scan(primary, extended []byte, collect bool) {
	s.hit.ClearAll()
	s.active.ClearAll()
	s.hits[sidePrimary] = s.hits[sidePrimary][:0]
	s.hits[sideExtended] = s.hits[sideExtended][:0]

	for side, full := range [2][]byte{primary, extended} {
		if full == nil {
			continue
		}
		region, off := s.m.span.Slice(full)
		for i, p := range s.m.pats {
			if p.Origin.allows(side) {
				s.active.Set(uint(i))
			}
		}
		switch s.m.kind {
		case KindAC:
			s.scanAC(side, region, off, collect)
		case KindRegex:
			s.scanRegex(side, region, off, collect)
		case KindFuzzy:
			s.scanFuzzy(side, region, off, collect)
		}
	}
}

func (s *Scanner) record(side, start, end int) {
	s.hits[side] = append(s.hits[side], Interval{Start: start, End: end})
}

func (s *Scanner) scanAC(side int, region []byte, off int, collect bool) {
	a := s.m.ac
	a.scan(region, func(end int, idx int32) bool {
		if !s.m.pats[idx].Origin.allows(side) {
			return true
		}
		s.hit.Set(uint(idx))
		if collect {
			s.record(side, off+end-a.lens[idx], off+end)
		}
		return true
	})
}

func (s *Scanner) scanRegex(side int, region []byte, off int, collect bool) {
	for i, re := range s.m.res {
		if !s.m.pats[i].Origin.allows(side) {
			continue
		}
		if !collect {
			if !s.hit.Test(uint(i)) && re.Match(region) {
				s.hit.Set(uint(i))
			}
			continue
		}
		for _, loc := range re.FindAllIndex(region, -1) {
			s.hit.Set(uint(i))
			if loc[1] > loc[0] {
				s.record(side, off+loc[0], off+loc[1])
			}
		}
	}
}

func (s *Scanner) scanFuzzy(side int, region []byte, off int, collect bool) {
	k := s.m.opts.K
	inexact := s.m.opts.InexactOnly
	for i, pat := range s.m.lit {
		if !s.m.pats[i].Origin.allows(side) {
			continue
		}
		if !collect && s.hit.Test(uint(i)) {
			continue
		}
		s.fz.scan(pat, region, k, func(end, cost int) bool {
			if inexact && cost == 0 {
				return true
			}
			s.hit.Set(uint(i))
			if !collect {
				return false
			}
			start := s.fz.start(pat, region, end, cost, k)
			s.record(side, off+start, off+end)
			return true
		})
	}
}
