package app

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"bqtools/internal/appcore"
	"bqtools/internal/container"
	"bqtools/internal/record"
)

// SampleOptions configures sample.
type SampleOptions struct {
	Input    string
	Fraction float64
	Seed     uint64
	Out      Output
	Threads  int
}

// Sample writes a random subset of records. The draw for each record is
// seeded by (Seed, record index), so the subset does not depend on the
// worker count.
func Sample(ctx context.Context, o SampleOptions) (uint64, error) {
	if !(o.Fraction > 0 && o.Fraction <= 1) {
		return 0, appcore.Usagef("fraction must be in (0, 1], got %g", o.Fraction)
	}
	in, err := container.Open(o.Input)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", o.Input, err)
	}
	defer in.Close()

	logger := log.FromContext(ctx)
	logger.Debug("sample", "input", in.Name(), "fraction", o.Fraction, "seed", o.Seed)
	n, err := writeRecords(ctx, in, o.Out, o.Threads, func(int) func(*record.Record) bool {
		pcg := rand.NewPCG(0, 0)
		rng := rand.New(pcg)
		return func(r *record.Record) bool {
			pcg.Seed(o.Seed, r.Index)
			return rng.Float64() < o.Fraction
		}
	})
	if err != nil {
		return n, err
	}
	logger.Info("sampled", "records", n, "of", in.NumRecords())
	return n, nil
}
