package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"bqtools/internal/appcore"
	"bqtools/internal/cliutil"
	"bqtools/internal/container"
	"bqtools/internal/pipeline"
	"bqtools/internal/record"
	"bqtools/internal/runutil"
	"bqtools/internal/textio"
)

// Policy decides what happens to records holding symbols outside ACGTN.
type Policy int

const (
	PolicyN      Policy = iota // replace with N
	PolicySkip                 // drop the record
	PolicyBreak                // fail the run
	PolicyRandom               // replace with a random base
)

func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyBreak:
		return "break"
	case PolicyRandom:
		return "random"
	}
	return "n"
}

// ParsePolicy accepts n, skip, break and random.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "n":
		return PolicyN, nil
	case "skip":
		return PolicySkip, nil
	case "break":
		return PolicyBreak, nil
	case "random", "r":
		return PolicyRandom, nil
	}
	return PolicyN, fmt.Errorf("unknown policy %q (want n, skip, break or random)", s)
}

// ErrInvalidBase is returned under PolicyBreak.
var ErrInvalidBase = errors.New("invalid nucleotide")

var validBase = func() (t [256]bool) {
	for _, c := range []byte("ACGTNacgtn") {
		t[c] = true
	}
	return t
}()

func firstInvalid(s []byte) int {
	for i, c := range s {
		if !validBase[c] {
			return i
		}
	}
	return -1
}

// apply enforces p on r in place. keep is false when r must be dropped.
func (p Policy) apply(r *record.Record, rng *rand.Rand) (keep bool, err error) {
	i, j := firstInvalid(r.Seq), firstInvalid(r.XSeq)
	if i < 0 && j < 0 {
		return true, nil
	}
	switch p {
	case PolicySkip:
		return false, nil
	case PolicyBreak:
		if i < 0 {
			return false, fmt.Errorf("%w %q in mate of record %d", ErrInvalidBase, r.XSeq[j], r.Index)
		}
		return false, fmt.Errorf("%w %q in record %d", ErrInvalidBase, r.Seq[i], r.Index)
	}
	for _, s := range [][]byte{r.Seq, r.XSeq} {
		for k, c := range s {
			if validBase[c] {
				continue
			}
			if p == PolicyRandom {
				s[k] = "ACGT"[rng.IntN(4)]
			} else {
				s[k] = 'N'
			}
		}
	}
	return true, nil
}

// EncodeOptions configures encode.
type EncodeOptions struct {
	Inputs      []string
	Output      string // "" derives <stem>.bq from the first input; "-" is stdout
	Paired      bool
	Interleaved bool
	Headers     bool
	SkipQuality bool
	BatchSize   int
	Level       int
	Policy      Policy
	Seed        uint64
	Threads     int
	Stdout      io.Writer
}

// EncodeStats summarizes an encode run.
type EncodeStats struct {
	Output  string
	Records uint64
	Skipped uint64
}

type encodeProc struct {
	w      *container.Writer
	enc    *container.BlockEncoder
	policy Policy
	rng    *rand.Rand

	keep    []record.Record
	block   container.EncodedBlock
	ready   bool
	skipped uint64
}

func (p *encodeProc) Process(b *record.Batch) error {
	p.keep = p.keep[:0]
	for i := range b.Records {
		r := &b.Records[i]
		ok, err := p.policy.apply(r, p.rng)
		if err != nil {
			return err
		}
		if !ok {
			p.skipped++
			continue
		}
		p.keep = append(p.keep, *r)
	}
	p.ready = len(p.keep) > 0
	if !p.ready {
		return nil
	}
	blk, err := p.enc.Encode(p.keep)
	if err != nil {
		return err
	}
	p.block = blk
	return nil
}

func (p *encodeProc) Flush() error {
	if !p.ready {
		return nil
	}
	p.ready = false
	return p.w.WriteBlock(p.block)
}

// Encode converts FASTA/FASTQ inputs into one container. With more than one
// worker, blocks land in completion order.
func Encode(ctx context.Context, o EncodeOptions) (EncodeStats, error) {
	logger := log.FromContext(ctx)
	if len(o.Inputs) == 0 {
		return EncodeStats{}, appcore.Usagef("encode needs at least one input")
	}
	if o.Paired && o.Interleaved {
		return EncodeStats{}, appcore.Usagef("--paired and --interleaved are mutually exclusive")
	}
	if o.Paired && len(o.Inputs) != 2 {
		return EncodeStats{}, appcore.Usagef("--paired needs exactly two inputs, got %d", len(o.Inputs))
	}

	for _, in := range o.Inputs {
		if cliutil.IsStdin(in) {
			continue
		}
		f, err := textio.DetectFormat(in)
		if err != nil {
			return EncodeStats{}, fmt.Errorf("open %s: %w", in, err)
		}
		if f == textio.FormatContainer {
			return EncodeStats{}, appcore.Usagef("%s is already a container", in)
		}
		logger.Debug("input", "path", in, "format", f)
	}

	src, err := textio.Open(textio.Options{Inputs: o.Inputs, Paired: o.Paired, Interleaved: o.Interleaved, BatchSize: o.BatchSize})
	if err != nil {
		return EncodeStats{}, err
	}
	defer src.Close()

	meta := src.Metadata()
	meta.Headers = o.Headers
	meta.Quality = meta.Quality && !o.SkipQuality
	hdr := container.NewHeader(meta, o.BatchSize, container.CodecZstd)

	path := o.Output
	if path == "" {
		path = runutil.DeriveOutput(o.Inputs[0], "bq")
	}
	var dst io.Writer
	var f *os.File
	if cliutil.IsStdin(path) {
		dst, path = o.Stdout, "stdout"
		if dst == nil {
			dst = os.Stdout
		}
	} else {
		if f, err = os.Create(path); err != nil {
			return EncodeStats{}, err
		}
		defer f.Close()
		dst = f
	}
	bw := bufio.NewWriterSize(dst, 1<<20)
	w, err := container.NewWriter(bw, hdr)
	if err != nil {
		return EncodeStats{}, err
	}

	threads := runutil.Threads(o.Threads)
	logger.Debug("encode", "inputs", o.Inputs, "output", path, "paired", meta.Paired, "quality", meta.Quality,
		"headers", meta.Headers, "policy", o.Policy, "threads", threads)

	procs, _, runErr := pipeline.Run(ctx, pipeline.Config{Threads: threads}, src, func(tid int) (*encodeProc, error) {
		zenc, err := container.NewZstdEncoder(o.Level)
		if err != nil {
			return nil, err
		}
		return &encodeProc{
			w:      w,
			enc:    container.NewBlockEncoder(hdr, zenc),
			policy: o.Policy,
			rng:    rand.New(rand.NewPCG(o.Seed, uint64(tid))),
		}, nil
	})
	st := EncodeStats{Output: path}
	for _, p := range procs {
		st.Skipped += p.skipped
	}
	if runErr != nil {
		return st, runErr
	}
	if err := w.Close(); err != nil {
		return st, err
	}
	if err := bw.Flush(); err != nil {
		return st, fmt.Errorf("write %s: %w", path, err)
	}
	if f != nil {
		if err := f.Close(); err != nil {
			return st, err
		}
	}
	st.Records = w.Records()
	if st.Skipped > 0 {
		logger.Warn("skipped records with invalid nucleotides", "skipped", st.Skipped)
	}
	logger.Info("encoded", "output", path, "records", st.Records)
	return st, nil
}
