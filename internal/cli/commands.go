package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"bqtools/internal/app"
	"bqtools/internal/appcore"
	"bqtools/internal/cliutil"
	"bqtools/internal/match"
	"bqtools/internal/runutil"
	"bqtools/internal/writers"
)

func newEncodeCmd(e *env) *cobra.Command {
	var (
		o      app.EncodeOptions
		policy string
	)
	cmd := &cobra.Command{
		Use:   "encode <input> [<input2>]",
		Short: "Pack FASTA/FASTQ records into a container",
		Args:  minArgs(1),
	}
	fs := cmd.Flags()
	fs.StringVarP(&o.Output, "output", "o", "", "output container ('-' = stdout) [default <stem>.bq]")
	fs.BoolVarP(&o.Paired, "paired", "p", false, "treat two inputs as R1 and R2 mates")
	fs.BoolVarP(&o.Interleaved, "interleaved", "I", false, "read mates interleaved from one input")
	fs.BoolVarP(&o.Headers, "headers", "H", false, "keep record headers")
	fs.BoolVar(&o.SkipQuality, "skip-quality", false, "drop quality strings")
	fs.Int("batch-size", 0, "records per block")
	fs.Int("level", 0, "zstd level 1-4")
	fs.StringVar(&policy, "policy", "n", "invalid base policy: n | skip | break | random")
	fs.Uint64Var(&o.Seed, "seed", 42, "seed for the random policy")
	_ = e.v.BindPFlag("batch-size", fs.Lookup("batch-size"))
	_ = e.v.BindPFlag("level", fs.Lookup("level"))

	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		inputs, err := cliutil.ExpandPositionals(args)
		if err != nil {
			return &appcore.UsageError{Err: err}
		}
		if o.Policy, err = app.ParsePolicy(policy); err != nil {
			return &appcore.UsageError{Err: err}
		}
		o.Inputs = inputs
		o.BatchSize = e.settings.BatchSize
		o.Level = e.settings.Level
		o.Threads = e.settings.Threads
		o.Stdout = e.stdout
		_, err = app.Encode(ctx, o)
		return err
	})
	return cmd
}

func newDecodeCmd(e *env) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "decode <input.bq>",
		Short: "Write container records as FASTA, FASTQ or TSV",
		Args:  exactArgs(1),
	}
	out.register(cmd.Flags())
	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		o, err := out.resolve(e)
		if err != nil {
			return err
		}
		n, err := app.Decode(ctx, app.DecodeOptions{Input: args[0], Out: o, Threads: e.settings.Threads})
		if err != nil {
			return err
		}
		log.FromContext(ctx).Debug("decoded", "records", n)
		return nil
	})
	return cmd
}

func newCatCmd(e *env) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "cat <input.bq>...",
		Short: "Concatenate containers with matching layouts",
		Args:  minArgs(1),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output container ('-' or empty = stdout)")
	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		inputs, err := cliutil.ExpandPositionals(args)
		if err != nil {
			return &appcore.UsageError{Err: err}
		}
		n, err := app.Cat(ctx, inputs, output, e.stdout)
		if err != nil {
			return err
		}
		log.FromContext(ctx).Debug("concatenated", "inputs", len(inputs), "records", n)
		return nil
	})
	return cmd
}

func newCountCmd(e *env) *cobra.Command {
	var o app.CountOptions
	cmd := &cobra.Command{
		Use:   "count <input.bq>",
		Short: "Report the record count and layout of a container",
		Args:  exactArgs(1),
	}
	cmd.Flags().BoolVarP(&o.Num, "num", "n", false, "print only the record count")
	cmd.Flags().BoolVar(&o.JSON, "json", false, "print a JSON object")
	cmd.Flags().BoolVar(&o.Pretty, "pretty", false, "indent --json output")
	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		o.Input = args[0]
		return app.Count(ctx, o, e.stdout)
	})
	return cmd
}

func newSampleCmd(e *env) *cobra.Command {
	var (
		o   app.SampleOptions
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "sample <input.bq>",
		Short: "Write a random fraction of the records",
		Args:  exactArgs(1),
	}
	cmd.Flags().Float64VarP(&o.Fraction, "fraction", "F", 0, "fraction of records to keep, in (0, 1]")
	cmd.Flags().Uint64VarP(&o.Seed, "seed", "S", 42, "sampling seed")
	out.register(cmd.Flags())
	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		var err error
		if o.Out, err = out.resolve(e); err != nil {
			return err
		}
		o.Input = args[0]
		o.Threads = e.settings.Threads
		n, err := app.Sample(ctx, o)
		if err != nil {
			return err
		}
		log.FromContext(ctx).Debug("sampled", "records", n)
		return nil
	})
	return cmd
}

func newGrepCmd(e *env) *cobra.Command {
	var (
		o                  app.GrepOptions
		out                outputFlags
		span, denom, color string
	)
	cmd := &cobra.Command{
		Use:   "grep <input.bq> [pattern...]",
		Short: "Filter or count records by sequence patterns",
		Args:  minArgs(1),
	}
	fs := cmd.Flags()
	fs.StringArrayVarP(&o.Reg1, "reg1", "r", nil, "pattern searched in the primary sequence only")
	fs.StringArrayVarP(&o.Reg2, "reg2", "R", nil, "pattern searched in the extended sequence only")
	fs.StringVar(&o.File, "file", "", "file of patterns (one per line) searched in either sequence")
	fs.StringVar(&o.SFile, "sfile", "", "file of patterns searched in the primary sequence only")
	fs.StringVar(&o.XFile, "xfile", "", "file of patterns searched in the extended sequence only")
	fs.BoolVar(&o.OrLogic, "or-logic", false, "match if any pattern matches (default: all)")
	fs.StringVar(&span, "range", "", "restrict matching to a 0-based span: start..end, start.., ..end")
	fs.BoolVarP(&o.Fixed, "fixed", "x", false, "treat patterns as literal strings")
	fs.BoolVarP(&o.Fuzzy, "fuzzy", "z", false, "allow up to -k edits per pattern")
	fs.IntVarP(&o.K, "distance", "k", 1, "edit distance for --fuzzy")
	fs.BoolVarP(&o.Inexact, "inexact", "i", false, "with --fuzzy, only count matches with at least one edit")
	fs.BoolVarP(&o.Invert, "invert", "v", false, "select records that do not match")
	fs.BoolVarP(&o.CountOnly, "count", "C", false, "print only the number of matching records")
	fs.BoolVarP(&o.PatternCount, "pattern-count", "P", false, "report how many records each pattern occurs in")
	fs.StringVar(&denom, "denominator", "all", "pattern-count total: all | span")
	fs.BoolVar(&o.JSON, "json", false, "pattern-count report as JSON lines")
	fs.StringVar(&color, "color", "auto", "highlight matches: auto | always | never")
	out.register(fs)

	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		o.Input, o.Patterns = args[0], args[1:]
		sp, err := runutil.ParseSpan(span)
		if err != nil {
			return appcore.Usagef("--range: %v", err)
		}
		o.Range = &sp
		switch denom {
		case "all":
			o.Denominator = match.DenomAll
		case "span":
			o.Denominator = match.DenomSpan
		default:
			return appcore.Usagef("--denominator must be all or span, got %q", denom)
		}
		if o.Color, err = app.ParseColorMode(color); err != nil {
			return &appcore.UsageError{Err: err}
		}
		if o.Out, err = out.resolve(e); err != nil {
			return err
		}
		o.Threads = e.settings.Threads
		o.Stdout = e.stdout
		st, err := app.Grep(ctx, o)
		if err != nil {
			return err
		}
		log.FromContext(ctx).Debug("grep done", "backend", st.Kind, "matched", st.Matched, "total", st.Total)
		return nil
	})
	return cmd
}

func newPipeCmd(e *env) *cobra.Command {
	var (
		o      app.PipeOptions
		format string
	)
	cmd := &cobra.Command{
		Use:   "pipe <input.bq>",
		Short: "Stream contiguous record ranges to named pipes",
		Long: `pipe creates {base}_{i}.{ext} (or {base}_{i}_R1/_R2 for paired input)
as named pipes and writes each one an ordered slice of the records once a
reader opens it. It returns after every pipe has been drained.`,
		Args: exactArgs(1),
	}
	cmd.Flags().IntVarP(&o.Pipes, "pipes", "p", 0, "number of pipes (0 = one per CPU)")
	cmd.Flags().StringVarP(&o.Base, "base", "b", "", "pipe path prefix [default input stem]")
	cmd.Flags().StringVarP(&format, "format", "f", "q", "record format: a (fasta) | q (fastq)")
	cmd.RunE = e.run(func(ctx context.Context, args []string) error {
		var err error
		if o.Format, err = writers.ParseFormat(format); err != nil {
			return &appcore.UsageError{Err: err}
		}
		o.Input = args[0]
		_, err = app.Pipe(ctx, o, nil)
		return err
	})
	return cmd
}
