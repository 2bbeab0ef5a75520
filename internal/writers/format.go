package writers

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a text record layout.
type Format int

const (
	FASTQ Format = iota
	FASTA
	TSV
)

func (f Format) String() string {
	switch f {
	case FASTA:
		return "fasta"
	case TSV:
		return "tsv"
	default:
		return "fastq"
	}
}

// Ext is the file extension used for derived output names.
func (f Format) Ext() string {
	switch f {
	case FASTA:
		return "fa"
	case TSV:
		return "tsv"
	default:
		return "fq"
	}
}

// ParseFormat accepts the short (a, q, t) and long names.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "q", "fq", "fastq":
		return FASTQ, nil
	case "a", "fa", "fasta":
		return FASTA, nil
	case "t", "tsv":
		return TSV, nil
	}
	return FASTQ, fmt.Errorf("unknown output format %q (want a, q or t)", s)
}

// FormatFromPath infers a format from a file name, looking through a
// compression suffix. ok is false when nothing is recognized.
func FormatFromPath(path string) (f Format, ok bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, z := range []string{".gz", ".bgz", ".zst", ".zstd"} {
		name = strings.TrimSuffix(name, z)
	}
	switch filepath.Ext(name) {
	case ".fq", ".fastq":
		return FASTQ, true
	case ".fa", ".fasta", ".fna":
		return FASTA, true
	case ".tsv", ".txt":
		return TSV, true
	}
	return FASTQ, false
}
