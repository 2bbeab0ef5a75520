package pipeline

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"bqtools/internal/runutil"
)

// Config controls the worker pool.
type Config struct {
	Threads int // number of worker goroutines; <= 0 means runtime.NumCPU()
}

// Stats is the aggregate outcome of a run.
type Stats struct {
	Batches uint64
	Records uint64
}

// EffectiveThreads resolves the auto-detect request.
func EffectiveThreads(n int) int { return runutil.Threads(n) }

// Run starts cfg.Threads workers. Each builds its own Processor with
// newProc, then repeatedly claims a batch from src, processes it and flushes.
//
// A worker stops claiming when the source is exhausted, when it fails, or
// when another worker has failed; a batch already claimed is always
// finished. Run returns the processors (in worker order) so callers can
// merge their local state, and the first error encountered.
func Run[P Processor](
	ctx context.Context,
	cfg Config,
	src Source,
	newProc func(tid int) (P, error),
) ([]P, Stats, error) {
	threads := EffectiveThreads(cfg.Threads)

	procs := make([]P, threads)
	for tid := range procs {
		p, err := newProc(tid)
		if err != nil {
			return nil, Stats{}, err
		}
		procs[tid] = p
	}

	var batches, records atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	for tid := 0; tid < threads; tid++ {
		p := procs[tid]
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					// Another worker failed or the caller cancelled.
					return ctx.Err()
				default:
				}
				b, ok, err := src.Next()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := p.Process(b); err != nil {
					return err
				}
				if err := p.Flush(); err != nil {
					return err
				}
				batches.Add(1)
				records.Add(uint64(b.Len()))
			}
		})
	}

	err := g.Wait()
	st := Stats{Batches: batches.Load(), Records: records.Load()}
	if err == nil {
		err = ctx.Err()
	}
	return procs, st, err
}
