package match

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bqtools/internal/runutil"
)

func cli(texts ...string) []Pattern {
	out := make([]Pattern, len(texts))
	for i, t := range texts {
		out[i] = Pattern{Text: t}
	}
	return out
}

func mustCompile(t *testing.T, pats []Pattern, o Options) *Matcher {
	t.Helper()
	m, err := Compile(pats, o)
	require.NoError(t, err)
	return m
}

func TestAndOrLogic(t *testing.T) {
	rec := []byte("GGGACGTGGG")
	for _, fixed := range []bool{false, true} {
		and := mustCompile(t, cli("ACGT", "TTTT"), Options{Fixed: fixed}).NewScanner()
		require.False(t, and.Match(rec, nil), "fixed=%v", fixed)

		or := mustCompile(t, cli("ACGT", "TTTT"), Options{Fixed: fixed, Logic: Or}).NewScanner()
		require.True(t, or.Match(rec, nil), "fixed=%v", fixed)
	}
}

func TestBackendSelection(t *testing.T) {
	require.Equal(t, KindAC, mustCompile(t, cli("ACGT", "GG"), Options{Fixed: true}).Kind())
	require.Equal(t, KindRegex, mustCompile(t, cli("ACGT", "G+"), Options{Fixed: true}).Kind())
	require.Equal(t, KindRegex, mustCompile(t, cli("ACGT"), Options{}).Kind())
	require.Equal(t, KindFuzzy, mustCompile(t, cli("ACGTACGT"), Options{Fuzzy: true}).Kind())
}

func TestFixedAndRegexAgreeOnLiterals(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	randSeq := func(n int) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = "ACGT"[rng.IntN(4)]
		}
		return b
	}
	for trial := 0; trial < 50; trial++ {
		var pats []Pattern
		for i := 0; i < 1+rng.IntN(5); i++ {
			p := Pattern{Text: string(randSeq(2 + rng.IntN(4))), Origin: Origin(rng.IntN(3))}
			pats = append(pats, p)
		}
		for _, logic := range []Logic{And, Or} {
			ac := mustCompile(t, pats, Options{Fixed: true, Logic: logic}).NewScanner()
			re := mustCompile(t, pats, Options{Logic: logic}).NewScanner()
			for r := 0; r < 40; r++ {
				s, x := randSeq(30), randSeq(20)
				if r%3 == 0 {
					x = nil
				}
				require.Equal(t, re.Match(s, x), ac.Match(s, x), "pats=%v s=%s x=%s", pats, s, x)
			}
		}
	}
}

func TestCountModeOncePerRecord(t *testing.T) {
	var recs [][]byte
	for i := 0; i < 100; i++ {
		switch {
		case i < 10:
			recs = append(recs, []byte("GGGGACGTGGGG"))
		case i < 15:
			recs = append(recs, []byte("ACGTGGGGACGT"))
		default:
			recs = append(recs, []byte("GGGGGGGGGGGG"))
		}
	}
	for _, fixed := range []bool{false, true} {
		m := mustCompile(t, cli("ACGT", "GGGG"), Options{Fixed: fixed})
		sc := m.NewScanner()
		counts := make([]uint64, m.Len())
		var total uint64
		for _, r := range recs {
			if sc.Count(r, nil, counts) {
				total++
			}
		}
		require.EqualValues(t, 15, counts[0])
		require.EqualValues(t, 100, counts[1])
		require.EqualValues(t, 100, total)
		require.InDelta(t, 0.15, float64(counts[0])/float64(total), 1e-9)
	}
}

func TestCountModeInvert(t *testing.T) {
	m := mustCompile(t, cli("ACGT"), Options{Invert: true})
	sc := m.NewScanner()
	counts := make([]uint64, 1)
	sc.Count([]byte("ACGTACGT"), nil, counts)
	sc.Count([]byte("TTTT"), nil, counts)
	sc.Count([]byte("GGGG"), nil, counts)
	require.EqualValues(t, 2, counts[0])
}

func TestCountDenominatorSpan(t *testing.T) {
	m := mustCompile(t, cli("AC"), Options{Range: &runutil.Span{Start: 10, End: 20}, Denominator: DenomSpan})
	sc := m.NewScanner()
	counts := make([]uint64, 1)
	require.False(t, sc.Count([]byte("ACACAC"), nil, counts))
	require.True(t, sc.Count([]byte("GGGGGGGGGGGAC"), nil, counts))
	require.EqualValues(t, 1, counts[0])
}

func TestCountDenominatorSpanInvert(t *testing.T) {
	m := mustCompile(t, cli("AC"), Options{Invert: true, Range: &runutil.Span{Start: 10, End: 20}, Denominator: DenomSpan})
	sc := m.NewScanner()
	counts := make([]uint64, 1)
	var total uint64
	for _, r := range []string{"ACACAC", "GGGG", "GGGGGGGGGGGGGGG"} {
		if sc.Count([]byte(r), nil, counts) {
			total++
		}
	}
	require.EqualValues(t, 1, total)
	require.EqualValues(t, 1, counts[0], "records outside the span are not counted")
	require.LessOrEqual(t, counts[0], total)
}

func TestZeroWidthRange(t *testing.T) {
	for _, v := range []string{"..0", "0..0", "3..3"} {
		sp, err := runutil.ParseSpan(v)
		require.NoError(t, err)
		for _, fixed := range []bool{false, true} {
			sc := mustCompile(t, cli("ACGT"), Options{Fixed: fixed, Range: &sp}).NewScanner()
			require.False(t, sc.Match([]byte("ACGTACGT"), nil), "range %s fixed=%v", v, fixed)
		}
	}
	full, err := runutil.ParseSpan("")
	require.NoError(t, err)
	require.True(t, mustCompile(t, cli("ACGT"), Options{Range: &full}).NewScanner().Match([]byte("ACGTACGT"), nil))
}

func TestInvertNegatesCombinedResult(t *testing.T) {
	sc := mustCompile(t, cli("ACGT", "TTTT"), Options{Invert: true}).NewScanner()
	// AND fails → inverted match.
	require.True(t, sc.Match([]byte("ACGT"), nil))
	require.False(t, sc.Match([]byte("ACGTTTTT"), nil))
}

func TestEmptySetMatchesNothing(t *testing.T) {
	for _, inv := range []bool{false, true} {
		m := mustCompile(t, nil, Options{Invert: inv})
		require.False(t, m.NewScanner().Match([]byte("ACGT"), []byte("ACGT")))
	}
}

func TestOriginRestriction(t *testing.T) {
	pats := []Pattern{{Text: "AAAA", Origin: Primary}, {Text: "CCCC", Origin: Extended}}
	for _, fixed := range []bool{false, true} {
		sc := mustCompile(t, pats, Options{Fixed: fixed}).NewScanner()
		require.True(t, sc.Match([]byte("AAAA"), []byte("CCCC")))
		require.False(t, sc.Match([]byte("CCCC"), []byte("AAAA")), "patterns must not cross regions")
		// Only the primary pattern is active on unpaired records.
		require.True(t, sc.Match([]byte("GAAAAG"), nil))
	}
}

func TestBulkPatternsUseOr(t *testing.T) {
	bulk := []Pattern{{Text: "AAAA", Bulk: true}, {Text: "CCCC", Bulk: true}}
	sc := mustCompile(t, bulk, Options{Logic: And}).NewScanner()
	require.True(t, sc.Match([]byte("GGAAAAGG"), nil))

	mixed := append(cli("GG"), bulk...)
	sc = mustCompile(t, mixed, Options{Logic: And}).NewScanner()
	require.True(t, sc.Match([]byte("GGCCCC"), nil))
	require.False(t, sc.Match([]byte("GGTTTT"), nil))
	require.False(t, sc.Match([]byte("CCCC"), nil))
}

func TestRangeRestrictsRegion(t *testing.T) {
	sc := mustCompile(t, cli("ACGT"), Options{Range: &runutil.Span{Start: 4, End: -1}}).NewScanner()
	require.False(t, sc.Match([]byte("ACGTGGGG"), nil))
	require.True(t, sc.Match([]byte("GGGGACGT"), nil))

	sc.CollectHits(true)
	require.True(t, sc.Match([]byte("GGGGACGT"), nil))
	p, _ := sc.Hits()
	require.Equal(t, []Interval{{Start: 4, End: 8}}, p)
}

func TestFuzzy(t *testing.T) {
	m := mustCompile(t, cli("AAAAAAAA"), Options{Fuzzy: true, K: 2})
	sc := m.NewScanner()
	require.True(t, sc.Match([]byte("GGGGAAAAAAAATTTT"), nil))
	require.True(t, sc.Match([]byte("GGGGAAAACAAATTTT"), nil))
	require.False(t, sc.Match([]byte("GGGGGGGGGGGG"), nil))

	inexact := mustCompile(t, cli("AAAAAAAA"), Options{Fuzzy: true, K: 2, InexactOnly: true}).NewScanner()
	require.False(t, inexact.Match([]byte("GGGGAAAAAAAATTTT"), nil))
	require.True(t, inexact.Match([]byte("GGGGAAAACAAATTTT"), nil))

	inexact.CollectHits(true)
	require.True(t, inexact.Match([]byte("GGGGAAAACAAATTTT"), nil))
	p, _ := inexact.Hits()
	require.Len(t, p, 1)
	require.Equal(t, 4, p[0].Start)
	require.Equal(t, 12, p[0].End)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(cli("AC(GT"), Options{})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "AC(GT", ce.Pattern)
	require.Contains(t, err.Error(), "AC(GT")

	_, err = Compile(cli("ACGT"), Options{Fixed: true, Fuzzy: true})
	require.True(t, errors.Is(err, ErrConflictingModes))

	_, err = Compile(cli("AC"), Options{Fuzzy: true, K: 2})
	require.ErrorAs(t, err, &ce)

	_, err = Compile(cli(""), Options{})
	require.Error(t, err)
}

func TestHitsMergeOverlaps(t *testing.T) {
	sc := mustCompile(t, cli("ACG", "CGT", "TT"), Options{Fixed: true, Logic: Or}).NewScanner()
	sc.CollectHits(true)
	require.True(t, sc.Match([]byte("AACGTAATT"), []byte("CGT")))
	p, x := sc.Hits()
	require.Equal(t, []Interval{{1, 5}, {7, 9}}, p)
	require.Equal(t, []Interval{{0, 3}}, x)
}

func TestACMatchesRegexpPositions(t *testing.T) {
	text := []byte(strings.Repeat("ACGTTGCA", 5))
	pats := []string{"GT", "TGC", "CAA", "A"}
	a := buildAC([][]byte{[]byte(pats[0]), []byte(pats[1]), []byte(pats[2]), []byte(pats[3])})
	got := map[int]int{}
	a.scan(text, func(end int, idx int32) bool {
		got[int(idx)]++
		return true
	})
	for i, p := range pats {
		want := len(regexp.MustCompile(p).FindAllIndex(text, -1))
		require.Equal(t, want, got[i], "pattern %s", p)
	}
}
