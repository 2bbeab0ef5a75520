// Package pipeserver streams one container to N named pipes, each carrying a
// contiguous, ordered slice of the records.
package pipeserver

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"bqtools/internal/record"
	"bqtools/internal/sink"
	"bqtools/internal/writers"
)

// RangeSource is the random-access view the server needs; *container.Reader
// satisfies it.
type RangeSource interface {
	Metadata() record.Metadata
	NumRecords() uint64
	Range(start, end uint64) RangeIter
}

// RangeIter yields the records of one span in order.
type RangeIter interface {
	Next() (*record.Batch, bool, error)
}

// Opener creates and opens pipe endpoints.
type Opener interface {
	// Create makes the endpoint at path. created is false when an existing
	// endpoint was reused.
	Create(path string) (created bool, err error)
	// Open blocks until a reader attaches or ctx is done.
	Open(ctx context.Context, path string) (io.WriteCloser, error)
	Remove(path string) error
}

// SetupError is returned when endpoints cannot be created.
type SetupError struct {
	Path string
	Err  error
}

func (e *SetupError) Error() string { return fmt.Sprintf("pipe setup %s: %v", e.Path, e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// Config controls a serve run.
type Config struct {
	Pipes  int // 0 means runtime.NumCPU()
	Base   string
	Format writers.Format
}

// Span is a half-open record range [Start, End).
type Span struct {
	Start, End uint64
}

func (s Span) String() string { return fmt.Sprintf("%d..%d", s.Start, s.End) }

// Len is the number of records in the span.
func (s Span) Len() uint64 { return s.End - s.Start }

// Partition splits total records into n contiguous spans whose sizes differ
// by at most one; earlier spans take the remainder.
func Partition(total uint64, n int) []Span {
	if n < 1 {
		n = 1
	}
	out := make([]Span, n)
	per, rem := total/uint64(n), total%uint64(n)
	var at uint64
	for i := range out {
		size := per
		if uint64(i) < rem {
			size++
		}
		out[i] = Span{Start: at, End: at + size}
		at += size
	}
	return out
}

// Endpoint is one pipe, the side of the record it carries and its span.
type Endpoint struct {
	Index int
	Path  string
	Mate  record.Mate
	Span  Span
}

// Endpoints lays out the pipes for cfg: {base}_{i}.{ext}, or
// {base}_{i}_R1.{ext} and {base}_{i}_R2.{ext} for paired sources.
func Endpoints(cfg Config, meta record.Metadata, total uint64) []Endpoint {
	n := cfg.Pipes
	if n <= 0 {
		n = runtime.NumCPU()
	}
	ext := cfg.Format.Ext()
	var eps []Endpoint
	for i, sp := range Partition(total, n) {
		if !meta.Paired {
			eps = append(eps, Endpoint{Index: i, Path: fmt.Sprintf("%s_%d.%s", cfg.Base, i, ext), Mate: record.MatePrimary, Span: sp})
			continue
		}
		eps = append(eps,
			Endpoint{Index: i, Path: fmt.Sprintf("%s_%d_R1.%s", cfg.Base, i, ext), Mate: record.MatePrimary, Span: sp},
			Endpoint{Index: i, Path: fmt.Sprintf("%s_%d_R2.%s", cfg.Base, i, ext), Mate: record.MateExtended, Span: sp},
		)
	}
	return eps
}

// Stats summarizes a finished run.
type Stats struct {
	Pipes   int
	Records uint64 // records written, counting each mate side once per pipe
}

// Serve creates every endpoint, then runs one writer per endpoint and
// returns only after all of them have finished. Endpoints it created are
// removed before returning.
func Serve(ctx context.Context, cfg Config, src RangeSource, op Opener) (Stats, error) {
	logger := log.FromContext(ctx)
	meta := src.Metadata()
	if cfg.Format == writers.TSV {
		return Stats{}, fmt.Errorf("pipe output must be fasta or fastq")
	}
	eps := Endpoints(cfg, meta, src.NumRecords())

	var created []string
	defer func() {
		for _, p := range created {
			if err := op.Remove(p); err != nil {
				logger.Warn("could not remove pipe", "path", p, "err", err)
			}
		}
	}()
	for _, ep := range eps {
		ok, err := op.Create(ep.Path)
		if err != nil {
			return Stats{}, &SetupError{Path: ep.Path, Err: err}
		}
		if ok {
			created = append(created, ep.Path)
		}
		logger.Debug("pipe ready", "path", ep.Path, "start", ep.Span.Start, "end", ep.Span.End)
	}

	var written atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range eps {
		g.Go(func() error {
			n, err := stream(gctx, ep, meta, cfg.Format, src, op)
			written.Add(n)
			if err != nil {
				if writers.IsBrokenPipe(err) && gctx.Err() == nil {
					logger.Warn("pipe reader left early", "path", ep.Path,
						"unsent", Span{Start: ep.Span.Start + n, End: ep.Span.End}, "sent", n)
				}
				return fmt.Errorf("%s: %w", ep.Path, err)
			}
			logger.Debug("pipe done", "path", ep.Path, "records", n)
			return nil
		})
	}
	err := g.Wait()
	return Stats{Pipes: len(eps), Records: written.Load()}, err
}

// stream writes one endpoint's span in order and closes the pipe.
func stream(ctx context.Context, ep Endpoint, meta record.Metadata, f writers.Format, src RangeSource, op Opener) (uint64, error) {
	rw, err := writers.NewRecordWriter(f, ep.Mate, false, meta)
	if err != nil {
		return 0, err
	}
	w, err := op.Open(ctx, ep.Path)
	if err != nil {
		return 0, err
	}
	// Closing the pipe unblocks a write stuck on a reader that stopped draining.
	stop := context.AfterFunc(ctx, func() { _ = w.Close() })
	defer stop()

	out, err := sink.FromWriter(w, ep.Path, sink.None)
	if err != nil {
		_ = w.Close()
		return 0, err
	}

	var (
		n   uint64
		buf writers.Buffers
		it  = src.Range(ep.Span.Start, ep.Span.End)
	)
	for {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return n, err
		}
		b, ok, err := it.Next()
		if err != nil {
			_ = out.Close()
			return n, err
		}
		if !ok {
			break
		}
		for i := range b.Records {
			rw.Append(&buf, &b.Records[i])
		}
		if err := buf.FlushTo(out); err != nil {
			_ = out.Close()
			return n, err
		}
		n += uint64(b.Len())
	}
	if err := out.Close(); err != nil {
		return n, err
	}
	return n, nil
}
