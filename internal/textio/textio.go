// Package textio reads FASTA/FASTQ inputs (plain or compressed) as record
// batches for the pipeline.
package textio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"

	"bqtools/internal/container"
	"bqtools/internal/record"
)

// ErrMateMismatch is returned when paired inputs disagree.
var ErrMateMismatch = errors.New("paired inputs are out of step")

// Options selects the input shape.
type Options struct {
	Inputs      []string
	Paired      bool // Inputs[0] is R1, Inputs[1] is R2
	Interleaved bool // consecutive records form a pair
	BatchSize   int
}

// Source serializes reads from one or more text inputs. Next is safe for
// concurrent callers; each call returns a distinct batch.
type Source struct {
	mu      sync.Mutex
	opts    Options
	meta    record.Metadata
	readers []*fastx.Reader
	cur     int
	next    uint64
	pending *record.Record
	done    bool
}

// Open opens the inputs and inspects the first record to fix the metadata.
func Open(o Options) (*Source, error) {
	if len(o.Inputs) == 0 {
		return nil, errors.New("no inputs")
	}
	if o.Paired && len(o.Inputs) != 2 {
		return nil, fmt.Errorf("paired mode needs exactly 2 inputs, got %d", len(o.Inputs))
	}
	if o.Paired && o.Interleaved {
		return nil, errors.New("paired and interleaved are mutually exclusive")
	}
	if o.BatchSize <= 0 {
		o.BatchSize = container.DefaultBlockSize
	}
	s := &Source{opts: o}
	for _, in := range o.Inputs {
		r, err := fastx.NewReader(seq.Unlimit, in, fastx.DefaultIDRegexp)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open %s: %w", in, err)
		}
		s.readers = append(s.readers, r)
	}

	first, err := s.read()
	if err != nil && err != io.EOF {
		s.Close()
		return nil, err
	}
	s.meta = record.Metadata{
		Paired:  o.Paired || o.Interleaved,
		Headers: true,
		Flags:   !o.Paired && len(o.Inputs) > 1,
	}
	if first != nil {
		s.meta.Quality = first.Qual != nil
		s.pending = first
	} else {
		s.done = true
	}
	return s, nil
}

// Metadata describes the records this source yields.
func (s *Source) Metadata() record.Metadata { return s.meta }

// Close releases every input.
func (s *Source) Close() {
	for _, r := range s.readers {
		r.Close()
	}
}

// Next reads up to BatchSize records. It reports false once the inputs are exhausted.
func (s *Source) Next() (*record.Batch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, false, nil
	}
	b := &record.Batch{Start: s.next, Records: make([]record.Record, 0, s.opts.BatchSize)}
	if s.pending != nil {
		b.Records = append(b.Records, *s.pending)
		s.pending = nil
	}
	for len(b.Records) < s.opts.BatchSize {
		r, err := s.read()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			s.done = true
			return nil, false, err
		}
		if (r.Qual != nil) != s.meta.Quality {
			s.done = true
			return nil, false, fmt.Errorf("record %d: mixed FASTA and FASTQ input", s.next+uint64(len(b.Records)))
		}
		b.Records = append(b.Records, *r)
	}
	for i := range b.Records {
		b.Records[i].Index = s.next + uint64(i)
	}
	s.next += uint64(len(b.Records))
	if len(b.Records) == 0 {
		return nil, false, nil
	}
	return b, true, nil
}

// read returns the next logical record (a pair when paired) or io.EOF.
func (s *Source) read() (*record.Record, error) {
	switch {
	case s.opts.Paired:
		r1, err1 := readOne(s.readers[0])
		r2, err2 := readOne(s.readers[1])
		if err1 == io.EOF && err2 == io.EOF {
			return nil, io.EOF
		}
		if err1 == io.EOF || err2 == io.EOF {
			return nil, fmt.Errorf("%w: one mate file ended early", ErrMateMismatch)
		}
		if err1 != nil {
			return nil, err1
		}
		if err2 != nil {
			return nil, err2
		}
		return join(r1, r2)
	case s.opts.Interleaved:
		r1, err := readOne(s.readers[0])
		if err != nil {
			return nil, err
		}
		r2, err := readOne(s.readers[0])
		if err == io.EOF {
			return nil, fmt.Errorf("%w: odd number of interleaved records", ErrMateMismatch)
		}
		if err != nil {
			return nil, err
		}
		return join(r1, r2)
	}
	for s.cur < len(s.readers) {
		r, err := readOne(s.readers[s.cur])
		if err == io.EOF {
			s.cur++
			continue
		}
		if err != nil {
			return nil, err
		}
		r.Flag = uint64(s.cur)
		return r, nil
	}
	return nil, io.EOF
}

func join(r1, r2 *record.Record) (*record.Record, error) {
	if (r1.Qual != nil) != (r2.Qual != nil) {
		return nil, fmt.Errorf("%w: %s and %s differ in quality", ErrMateMismatch, r1.Header, r2.Header)
	}
	r1.XSeq, r1.XQual, r1.XHeader = r2.Seq, r2.Qual, r2.Header
	if r1.XSeq == nil {
		r1.XSeq = []byte{}
	}
	return r1, nil
}

// readOne copies one record out of the reader's reused buffers.
func readOne(fr *fastx.Reader) (*record.Record, error) {
	rec, err := fr.Read()
	if err != nil {
		return nil, err
	}
	r := &record.Record{
		Seq:    bytes.Clone(rec.Seq.Seq),
		Header: bytes.Clone(rec.Name),
	}
	if r.Seq == nil {
		r.Seq = []byte{}
	}
	if len(rec.Seq.Qual) > 0 || fr.IsFastq {
		r.Qual = bytes.Clone(rec.Seq.Qual)
		if r.Qual == nil {
			r.Qual = []byte{}
		}
	}
	return r, nil
}

// Format is the detected shape of an input path.
type Format int

const (
	FormatUnknown Format = iota
	FormatFASTA
	FormatFASTQ
	FormatContainer
)

func (f Format) String() string {
	switch f {
	case FormatFASTA:
		return "fasta"
	case FormatFASTQ:
		return "fastq"
	case FormatContainer:
		return "container"
	}
	return "unknown"
}

// DetectFormat sniffs the first significant bytes of path, decompressing
// transparently.
func DetectFormat(path string) (Format, error) {
	r, err := xopen.Ropen(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer r.Close()
	head, err := r.Peek(4)
	if err != nil && len(head) == 0 {
		if err == io.EOF {
			return FormatUnknown, nil
		}
		return FormatUnknown, err
	}
	if container.IsContainer(head) {
		return FormatContainer, nil
	}
	for {
		c, err := r.ReadByte()
		if err != nil {
			return FormatUnknown, nil
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '>':
			return FormatFASTA, nil
		case '@':
			return FormatFASTQ, nil
		}
		return FormatUnknown, nil
	}
}
