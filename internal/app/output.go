package app

import (
	"errors"
	"io"

	"bqtools/internal/appcore"
	"bqtools/internal/record"
	"bqtools/internal/runutil"
	"bqtools/internal/sink"
	"bqtools/internal/writers"
)

// Output selects where and how decoded records are written.
type Output struct {
	Path        string // "" or "-" is standard output
	Prefix      string // split output: {prefix}_R1.{ext} and {prefix}_R2.{ext}
	Format      writers.Format
	FormatSet   bool // false: infer from Path, else FASTQ
	Mate        record.Mate
	Compression sink.Compression
	Level       int
	Stdout      io.Writer // replaces os.Stdout when set
}

func (o Output) format() writers.Format {
	if o.FormatSet {
		return o.Format
	}
	if f, ok := writers.FormatFromPath(o.Path); ok {
		return f
	}
	return writers.FASTQ
}

// writer validates the output shape against meta and returns a renderer.
// Each worker needs its own.
func (o Output) writer(meta record.Metadata) (*writers.RecordWriter, error) {
	rw, err := writers.NewRecordWriter(o.format(), o.Mate, o.Prefix != "", meta)
	if err != nil {
		return nil, &appcore.UsageError{Err: err}
	}
	return rw, nil
}

// open checks the options against meta and opens the destinations.
func (o Output) open(meta record.Metadata) (*sink.Sink, error) {
	if o.Prefix != "" && o.Path != "" {
		return nil, appcore.Usagef("-o and --prefix are mutually exclusive")
	}
	if _, err := o.writer(meta); err != nil {
		return nil, err
	}
	spec := sink.Spec{Path: o.Path, Compression: o.Compression, Level: o.Level, Stdout: o.Stdout}
	if o.Prefix != "" {
		c := o.Compression
		if c == sink.Auto {
			c = sink.None
		}
		spec.Compression = c
		spec.Path, spec.Path2 = runutil.SplitPaths(o.Prefix, o.format().Ext(), c.Ext())
	}
	return sink.Open(spec)
}

// closeSink folds the sink's close error into the run error.
func closeSink(out *sink.Sink, runErr error) error {
	return errors.Join(runErr, out.Close())
}
