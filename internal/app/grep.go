package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/shenwei356/xopen"

	"bqtools/internal/appcore"
	"bqtools/internal/cliutil"
	"bqtools/internal/container"
	"bqtools/internal/jsonlutil"
	"bqtools/internal/match"
	"bqtools/internal/pipeline"
	"bqtools/internal/record"
	"bqtools/internal/runutil"
	"bqtools/internal/sink"
	"bqtools/internal/writers"
)

// ColorMode controls match highlighting.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode accepts auto, always and never.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always", "yes":
		return ColorAlways, nil
	case "never", "no":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("unknown color mode %q (want auto, always or never)", s)
}

// GrepOptions configures grep.
type GrepOptions struct {
	Input string

	Patterns []string // either region
	Reg1     []string // primary only
	Reg2     []string // extended only
	File     string   // bulk, either region
	SFile    string   // bulk, primary only
	XFile    string   // bulk, extended only

	OrLogic     bool
	Fixed       bool
	Fuzzy       bool
	K           int
	Inexact     bool
	Invert      bool
	Range       *runutil.Span // nil searches the whole region
	Denominator match.Denominator

	CountOnly    bool
	PatternCount bool
	JSON         bool
	Color        ColorMode

	Out     Output
	Threads int
	Stdout  io.Writer
}

// PatternCount is one row of the per-pattern report.
type PatternCount struct {
	Pattern     string  `json:"pattern"`
	Origin      string  `json:"origin"`
	Count       uint64  `json:"count"`
	FracMatched float64 `json:"frac_matched"` // Count over the sum of every pattern's Count
	FracTotal   float64 `json:"frac_total"`   // Count over the records in the denominator
}

// GrepStats summarizes a grep run.
type GrepStats struct {
	Kind    match.Kind
	Matched uint64
	Total   uint64 // denominator in pattern-count mode
	Counts  []PatternCount
}

// LoadPatterns reads one pattern per line from a plain or compressed file.
// Blank lines are ignored.
func LoadPatterns(path string) ([]string, error) {
	r, err := xopen.Ropen(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file %s: %w", path, err)
	}
	defer r.Close()
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<24)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read pattern file %s: %w", path, err)
	}
	return out, nil
}

func (o GrepOptions) patterns() ([]match.Pattern, error) {
	var pats []match.Pattern
	add := func(texts []string, origin match.Origin, bulk bool) {
		for _, t := range texts {
			pats = append(pats, match.Pattern{Text: t, Origin: origin, Bulk: bulk})
		}
	}
	add(o.Reg1, match.Primary, false)
	add(o.Reg2, match.Extended, false)
	add(o.Patterns, match.Either, false)
	for _, f := range []struct {
		path   string
		origin match.Origin
	}{{o.SFile, match.Primary}, {o.XFile, match.Extended}, {o.File, match.Either}} {
		if f.path == "" {
			continue
		}
		texts, err := LoadPatterns(f.path)
		if err != nil {
			return nil, err
		}
		add(texts, f.origin, true)
	}
	if len(o.Reg1)+len(o.Reg2)+len(o.Patterns) == 0 && o.File == "" && o.SFile == "" && o.XFile == "" {
		return nil, appcore.Usagef("grep needs at least one pattern (positional, -r, -R, --file, --sfile or --xfile)")
	}
	return pats, nil
}

func (o GrepOptions) highlighter() *color.Color {
	switch {
	case o.Color == ColorNever || o.Invert || o.CountOnly || o.PatternCount:
		return nil
	case o.Color == ColorAuto:
		if !cliutil.IsStdin(o.Out.Path) || o.Out.Prefix != "" {
			return nil
		}
		var w io.Writer = os.Stdout
		if o.Out.Stdout != nil {
			w = o.Out.Stdout
		}
		f, ok := w.(*os.File)
		if !ok || !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return nil
		}
	}
	c := color.New(color.FgRed, color.Bold)
	c.EnableColor()
	return c
}

// highlight appends seq to dst with the intervals wrapped in color codes.
func highlight(dst, seq []byte, iv []match.Interval, c *color.Color) []byte {
	at := 0
	for _, x := range iv {
		dst = append(dst, seq[at:x.Start]...)
		dst = append(dst, c.Sprint(string(seq[x.Start:x.End]))...)
		at = x.End
	}
	return append(dst, seq[at:]...)
}

type grepProc struct {
	sc  *match.Scanner
	rw  *writers.RecordWriter // nil when only counting
	out *sink.Sink
	buf writers.Buffers

	hl          *color.Color
	disp, xdisp []byte

	matched uint64
}

func (p *grepProc) Process(b *record.Batch) error {
	for i := range b.Records {
		r := &b.Records[i]
		if !p.sc.Match(r.Seq, r.XSeq) {
			continue
		}
		p.matched++
		if p.rw == nil {
			continue
		}
		if p.hl == nil {
			p.rw.Append(&p.buf, r)
			continue
		}
		var disp, xdisp []byte
		hp, hx := p.sc.Hits()
		if len(hp) > 0 {
			p.disp = highlight(p.disp[:0], r.Seq, hp, p.hl)
			disp = p.disp
		}
		if len(hx) > 0 {
			p.xdisp = highlight(p.xdisp[:0], r.XSeq, hx, p.hl)
			xdisp = p.xdisp
		}
		p.rw.AppendDisplay(&p.buf, r, disp, xdisp)
	}
	return nil
}

func (p *grepProc) Flush() error {
	if p.rw == nil {
		return nil
	}
	return p.buf.FlushTo(p.out)
}

type patternCountProc struct {
	sc     *match.Scanner
	counts []uint64
	sum    uint64 // running sum of counts
	total  uint64
	hit    uint64 // records that moved at least one counter
}

func (p *patternCountProc) Process(b *record.Batch) error {
	for i := range b.Records {
		r := &b.Records[i]
		if p.sc.Count(r.Seq, r.XSeq, p.counts) {
			p.total++
		}
		var sum uint64
		for _, c := range p.counts {
			sum += c
		}
		if sum != p.sum {
			p.hit++
			p.sum = sum
		}
	}
	return nil
}

func (p *patternCountProc) Flush() error { return nil }

// Grep filters, counts or tallies per pattern the records of a container.
func Grep(ctx context.Context, o GrepOptions) (GrepStats, error) {
	logger := log.FromContext(ctx)
	if o.CountOnly && o.PatternCount {
		return GrepStats{}, appcore.Usagef("-C and -P are mutually exclusive")
	}
	pats, err := o.patterns()
	if err != nil {
		return GrepStats{}, err
	}
	logic := match.And
	if o.OrLogic {
		logic = match.Or
	}
	m, err := match.Compile(pats, match.Options{
		Logic:       logic,
		Fixed:       o.Fixed,
		Fuzzy:       o.Fuzzy,
		K:           o.K,
		InexactOnly: o.Inexact,
		Invert:      o.Invert,
		Range:       o.Range,
		Denominator: o.Denominator,
	})
	if err != nil {
		return GrepStats{}, err
	}

	in, err := container.Open(o.Input)
	if err != nil {
		return GrepStats{}, fmt.Errorf("open %s: %w", o.Input, err)
	}
	defer in.Close()

	stdout := o.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	st := GrepStats{Kind: m.Kind()}
	logger.Debug("grep", "input", in.Name(), "patterns", m.Len(), "backend", m.Kind(), "or", o.OrLogic,
		"range", o.Range, "invert", o.Invert, "threads", o.Threads)

	cfg := pipeline.Config{Threads: o.Threads}
	switch {
	case o.PatternCount:
		procs, _, err := pipeline.Run(ctx, cfg, in.Cursor(), func(int) (*patternCountProc, error) {
			return &patternCountProc{sc: m.NewScanner(), counts: make([]uint64, m.Len())}, nil
		})
		if err != nil {
			return st, err
		}
		counts := make([]uint64, m.Len())
		for _, p := range procs {
			st.Total += p.total
			st.Matched += p.hit
			for k, c := range p.counts {
				counts[k] += c
			}
		}
		st.Counts = tally(m.Patterns(), counts, st.Total)
		logger.Info("counted", "records", st.Total, "patterns", m.Len())
		return st, writePatternCounts(stdout, st.Counts, o.JSON)

	case o.CountOnly:
		procs, _, err := pipeline.Run(ctx, cfg, in.Cursor(), func(int) (*grepProc, error) {
			return &grepProc{sc: m.NewScanner()}, nil
		})
		if err != nil {
			return st, err
		}
		for _, p := range procs {
			st.Matched += p.matched
		}
		_, err = fmt.Fprintln(stdout, st.Matched)
		return st, err
	}

	meta := in.Metadata()
	if o.Out.Stdout == nil {
		o.Out.Stdout = o.Stdout
	}
	out, err := o.Out.open(meta)
	if err != nil {
		return st, err
	}
	hl := o.highlighter()
	procs, _, err := pipeline.Run(ctx, cfg, in.Cursor(), func(int) (*grepProc, error) {
		rw, err := o.Out.writer(meta)
		if err != nil {
			return nil, err
		}
		sc := m.NewScanner()
		sc.CollectHits(hl != nil)
		return &grepProc{sc: sc, rw: rw, out: out, hl: hl}, nil
	})
	for _, p := range procs {
		st.Matched += p.matched
	}
	if err := closeSink(out, err); err != nil {
		return st, err
	}
	logger.Info("matched", "records", st.Matched, "of", in.NumRecords())
	return st, nil
}

func tally(pats []match.Pattern, counts []uint64, total uint64) []PatternCount {
	var sum uint64
	for _, c := range counts {
		sum += c
	}
	out := make([]PatternCount, len(pats))
	for i, p := range pats {
		pc := PatternCount{Pattern: p.Text, Origin: p.Origin.String(), Count: counts[i]}
		if sum > 0 {
			pc.FracMatched = float64(counts[i]) / float64(sum)
		}
		if total > 0 {
			pc.FracTotal = float64(counts[i]) / float64(total)
		}
		out[i] = pc
	}
	return out
}

func writePatternCounts(w io.Writer, rows []PatternCount, asJSON bool) error {
	if asJSON {
		return jsonlutil.Write(w, rows)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "pattern\tcount\tfrac_matched\tfrac_total")
	for _, r := range rows {
		fmt.Fprintf(bw, "%s\t%d\t%g\t%g\n", r.Pattern, r.Count, r.FracMatched, r.FracTotal)
	}
	if err := bw.Flush(); err != nil && !writers.IsBrokenPipe(err) {
		return err
	}
	return nil
}
