package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"bqtools/internal/container"
	"bqtools/internal/pipeline"
	"bqtools/internal/record"
	"bqtools/internal/sink"
	"bqtools/internal/writers"
)

// DecodeOptions configures decode.
type DecodeOptions struct {
	Input   string
	Out     Output
	Threads int
}

// writeProc renders the records a filter keeps and hands them to the sink
// once per batch.
type writeProc struct {
	rw   *writers.RecordWriter
	out  *sink.Sink
	buf  writers.Buffers
	keep func(*record.Record) bool // nil keeps everything
	n    uint64
}

func (p *writeProc) Process(b *record.Batch) error {
	for i := range b.Records {
		r := &b.Records[i]
		if p.keep != nil && !p.keep(r) {
			continue
		}
		p.rw.Append(&p.buf, r)
		p.n++
	}
	return nil
}

func (p *writeProc) Flush() error { return p.buf.FlushTo(p.out) }

// writeRecords streams every record of in that keep (built per worker)
// accepts to o. It returns the number written.
func writeRecords(ctx context.Context, in *container.Reader, o Output, threads int, keep func(tid int) func(*record.Record) bool) (uint64, error) {
	meta := in.Metadata()
	out, err := o.open(meta)
	if err != nil {
		return 0, err
	}
	procs, _, err := pipeline.Run(ctx, pipeline.Config{Threads: threads}, in.Cursor(), func(tid int) (*writeProc, error) {
		rw, err := o.writer(meta)
		if err != nil {
			return nil, err
		}
		p := &writeProc{rw: rw, out: out}
		if keep != nil {
			p.keep = keep(tid)
		}
		return p, nil
	})
	var n uint64
	for _, p := range procs {
		n += p.n
	}
	return n, closeSink(out, err)
}

// Decode writes the records of a container as FASTA, FASTQ or TSV.
func Decode(ctx context.Context, o DecodeOptions) (uint64, error) {
	logger := log.FromContext(ctx)
	in, err := container.Open(o.Input)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", o.Input, err)
	}
	defer in.Close()

	logger.Debug("decode", "input", in.Name(), "records", in.NumRecords(), "format", o.Out.format(), "mate", o.Out.Mate, "threads", o.Threads)
	n, err := writeRecords(ctx, in, o.Out, o.Threads, nil)
	if err != nil {
		return n, err
	}
	logger.Info("decoded", "records", n)
	return n, nil
}
