// internal/writers/registry.go
package writers

import (
	"fmt"
	"strconv"
)

// Entry is one side of a record ready for rendering.
type Entry struct {
	Index uint64
	Name  []byte
	Seq   []byte
	Qual  []byte // nil: no scores stored
	XSeq  []byte // TSV only

	// Display replaces Seq in the output (e.g. highlighted matches).
	Display  []byte
	XDisplay []byte
}

func (e *Entry) seq() []byte {
	if e.Display != nil {
		return e.Display
	}
	return e.Seq
}

func (e *Entry) xseq() []byte {
	if e.XDisplay != nil {
		return e.XDisplay
	}
	return e.XSeq
}

// AppendFunc renders e onto dst.
type AppendFunc func(dst []byte, e *Entry) []byte

// Writer registry (format → renderer). Register in init() blocks.
var recordWriters = map[Format]AppendFunc{}

// Register installs fn for format (idempotent last-wins).
func Register(format Format, fn AppendFunc) { recordWriters[format] = fn }

// Lookup returns the renderer for format.
func Lookup(format Format) (AppendFunc, error) {
	fn, ok := recordWriters[format]
	if !ok {
		return nil, fmt.Errorf("unknown record format %q (no writer registered)", format)
	}
	return fn, nil
}

func init() {
	Register(FASTA, appendFASTA)
	Register(FASTQ, appendFASTQ)
	Register(TSV, appendTSV)
}

// appendName writes the stored header or the synthetic "seq.<index>".
func appendName(dst []byte, e *Entry) []byte {
	if len(e.Name) > 0 {
		return append(dst, e.Name...)
	}
	dst = append(dst, "seq."...)
	return strconv.AppendUint(dst, e.Index, 10)
}

func appendFASTA(dst []byte, e *Entry) []byte {
	dst = append(dst, '>')
	dst = appendName(dst, e)
	dst = append(dst, '\n')
	dst = append(dst, e.seq()...)
	return append(dst, '\n')
}

// appendFASTQ fills missing scores with '?' so the record stays well formed.
func appendFASTQ(dst []byte, e *Entry) []byte {
	dst = append(dst, '@')
	dst = appendName(dst, e)
	dst = append(dst, '\n')
	dst = append(dst, e.seq()...)
	dst = append(dst, "\n+\n"...)
	if e.Qual != nil {
		dst = append(dst, e.Qual...)
	} else {
		for range e.Seq {
			dst = append(dst, '?')
		}
	}
	return append(dst, '\n')
}

func appendTSV(dst []byte, e *Entry) []byte {
	dst = strconv.AppendUint(dst, e.Index, 10)
	dst = append(dst, '\t')
	dst = append(dst, e.seq()...)
	if e.XSeq != nil {
		dst = append(dst, '\t')
		dst = append(dst, e.xseq()...)
	}
	return append(dst, '\n')
}
