package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bqtools/internal/app"
	"bqtools/internal/appcore"
	"bqtools/internal/record"
	"bqtools/internal/sink"
	"bqtools/internal/writers"
)

// outputFlags are shared by every command that writes records.
type outputFlags struct {
	path     string
	prefix   string
	format   string
	mate     string
	compress string
	level    int
}

func (f *outputFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.path, "output", "o", "", "output file ('-' or empty = stdout)")
	fs.StringVar(&f.prefix, "prefix", "", "split paired output into {prefix}_R1.{ext} and {prefix}_R2.{ext}")
	fs.StringVarP(&f.format, "format", "f", "", "output format: a (fasta) | q (fastq) | t (tsv) [inferred from -o, else q]")
	fs.StringVarP(&f.mate, "mate", "m", "both", "mates to write: 1 | 2 | both")
	fs.StringVarP(&f.compress, "compress", "c", "auto", "output compression: auto | none | gzip | zstd")
	fs.IntVar(&f.level, "compress-level", 0, "gzip/zstd level (0 = library default)")
}

func (f *outputFlags) resolve(e *env) (app.Output, error) {
	o := app.Output{Path: f.path, Prefix: f.prefix, Level: f.level, Stdout: e.stdout}
	var err error
	if f.format != "" {
		if o.Format, err = writers.ParseFormat(f.format); err != nil {
			return o, &appcore.UsageError{Err: err}
		}
		o.FormatSet = true
	}
	if o.Mate, err = record.ParseMate(f.mate); err != nil {
		return o, &appcore.UsageError{Err: err}
	}
	if o.Compression, err = sink.ParseCompression(f.compress); err != nil {
		return o, &appcore.UsageError{Err: err}
	}
	return o, nil
}

// exactArgs and minArgs report arity problems as usage errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return appcore.Usagef("%s expects %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return appcore.Usagef("%s expects at least %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}
