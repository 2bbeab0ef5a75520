package writers

import (
	"fmt"

	"bqtools/internal/record"
)

// Buffers is a worker's pending output. Mixed holds single-stream output;
// Left/Right hold primary/extended output in split mode.
type Buffers struct {
	Mixed []byte
	Left  []byte
	Right []byte
}

// Reset keeps capacity for the next batch.
func (b *Buffers) Reset() {
	b.Mixed, b.Left, b.Right = b.Mixed[:0], b.Left[:0], b.Right[:0]
}

// Destination is what Buffers flush into; *sink.Sink satisfies it.
type Destination interface {
	Write(p []byte) error
	WritePair(p, x []byte) error
}

// FlushTo hands pending bytes to dst, pairs in one call, and resets.
func (b *Buffers) FlushTo(dst Destination) error {
	var err error
	switch {
	case len(b.Left) > 0 || len(b.Right) > 0:
		err = dst.WritePair(b.Left, b.Right)
	case len(b.Mixed) > 0:
		err = dst.Write(b.Mixed)
	}
	b.Reset()
	return err
}

// RecordWriter renders records according to mate selection and output shape.
type RecordWriter struct {
	Format Format
	Mate   record.Mate
	Split  bool // primary → Left, extended → Right

	render AppendFunc
	e, x   Entry
}

// NewRecordWriter validates the combination of options.
func NewRecordWriter(f Format, mate record.Mate, split bool, meta record.Metadata) (*RecordWriter, error) {
	fn, err := Lookup(f)
	if err != nil {
		return nil, err
	}
	if !meta.Paired && mate == record.MateExtended {
		return nil, fmt.Errorf("mate 2 requested but input is not paired")
	}
	if split && (!meta.Paired || mate != record.MateBoth) {
		return nil, fmt.Errorf("split output needs paired input and both mates")
	}
	if split && f == TSV {
		return nil, fmt.Errorf("split output is not supported for tsv")
	}
	return &RecordWriter{Format: f, Mate: mate, Split: split, render: fn}, nil
}

// Append renders r into buf.
func (w *RecordWriter) Append(buf *Buffers, r *record.Record) {
	w.AppendDisplay(buf, r, nil, nil)
}

// AppendDisplay renders r, printing disp/xdisp in place of the sequences when set.
func (w *RecordWriter) AppendDisplay(buf *Buffers, r *record.Record, disp, xdisp []byte) {
	w.e = Entry{Index: r.Index, Name: r.Header, Seq: r.Seq, Qual: r.Qual, Display: disp}
	w.x = Entry{Index: r.Index, Name: r.XHeader, Seq: r.XSeq, Qual: r.XQual, Display: xdisp}

	if w.Format == TSV {
		switch w.Mate {
		case record.MateExtended:
			buf.Mixed = w.render(buf.Mixed, &w.x)
		case record.MatePrimary:
			buf.Mixed = w.render(buf.Mixed, &w.e)
		default:
			w.e.XSeq, w.e.XDisplay = r.XSeq, xdisp
			buf.Mixed = w.render(buf.Mixed, &w.e)
		}
		return
	}

	switch {
	case w.Mate == record.MatePrimary || !r.IsPaired():
		buf.Mixed = w.render(buf.Mixed, &w.e)
	case w.Mate == record.MateExtended:
		buf.Mixed = w.render(buf.Mixed, &w.x)
	case w.Split:
		buf.Left = w.render(buf.Left, &w.e)
		buf.Right = w.render(buf.Right, &w.x)
	default:
		buf.Mixed = w.render(buf.Mixed, &w.e)
		buf.Mixed = w.render(buf.Mixed, &w.x)
	}
}
