package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"bqtools/internal/appcore"
	"bqtools/internal/container"
	"bqtools/internal/pipeserver"
	"bqtools/internal/runutil"
	"bqtools/internal/writers"
)

// PipeOptions configures pipe.
type PipeOptions struct {
	Input  string
	Pipes  int    // 0 means one per CPU
	Base   string // "" uses the input stem
	Format writers.Format
}

// Pipe serves a container over named pipes and returns once every pipe
// has been drained. A nil opener uses the platform's FIFOs.
func Pipe(ctx context.Context, o PipeOptions, op pipeserver.Opener) (pipeserver.Stats, error) {
	if o.Format == writers.TSV {
		return pipeserver.Stats{}, appcore.Usagef("pipe output must be fasta (a) or fastq (q)")
	}
	if o.Pipes < 0 {
		return pipeserver.Stats{}, appcore.Usagef("pipe count must be >= 0, got %d", o.Pipes)
	}
	in, err := container.Open(o.Input)
	if err != nil {
		return pipeserver.Stats{}, fmt.Errorf("open %s: %w", o.Input, err)
	}
	defer in.Close()

	if op == nil {
		if op, err = pipeserver.DefaultOpener(); err != nil {
			return pipeserver.Stats{}, err
		}
	}
	base := o.Base
	if base == "" {
		base = runutil.Stem(o.Input)
	}
	cfg := pipeserver.Config{Pipes: runutil.Threads(o.Pipes), Base: base, Format: o.Format}

	logger := log.FromContext(ctx)
	logger.Info("serving pipes", "pipes", cfg.Pipes, "base", base, "records", in.NumRecords(), "paired", in.Metadata().Paired)
	st, err := pipeserver.Serve(ctx, cfg, pipeserver.FromContainer(in), op)
	if err != nil {
		return st, err
	}
	logger.Info("pipes drained", "endpoints", st.Pipes, "records", st.Records)
	return st, nil
}
