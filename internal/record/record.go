// Package record holds the in-memory shape of sequencing reads as they move
// between sources, workers and sinks.
package record

import "fmt"

// Record is one read, or a primary/extended pair when XSeq is set.
// Nil Qual/XQual means the source carries no scores.
type Record struct {
	Index   uint64
	Seq     []byte
	XSeq    []byte
	Qual    []byte
	XQual   []byte
	Header  []byte
	XHeader []byte
	Flag    uint64
}

// IsPaired reports whether the record has an extended mate.
func (r *Record) IsPaired() bool { return r.XSeq != nil }

// Quality returns the primary scores and whether the source stores any.
func (r *Record) Quality() ([]byte, bool) { return r.Qual, r.Qual != nil }

// XQuality returns the extended scores and whether the source stores any.
func (r *Record) XQuality() ([]byte, bool) { return r.XQual, r.XQual != nil }

// Metadata describes what every record of a source carries.
type Metadata struct {
	Paired  bool
	Quality bool
	Headers bool
	Flags   bool
}

// Batch is a contiguous run of records. Start is the source index of Records[0].
type Batch struct {
	Start   uint64
	Records []Record
}

// Len is the number of records in the batch.
func (b *Batch) Len() int { return len(b.Records) }

// Mate selects which side of a paired record is emitted.
type Mate int

const (
	MateBoth Mate = iota
	MatePrimary
	MateExtended
)

func (m Mate) String() string {
	switch m {
	case MatePrimary:
		return "1"
	case MateExtended:
		return "2"
	default:
		return "both"
	}
}

// ParseMate accepts "1", "2" and "both".
func ParseMate(s string) (Mate, error) {
	switch s {
	case "", "both", "b":
		return MateBoth, nil
	case "1", "r1", "R1":
		return MatePrimary, nil
	case "2", "r2", "R2":
		return MateExtended, nil
	}
	return MateBoth, fmt.Errorf("invalid mate %q (want 1, 2 or both)", s)
}
