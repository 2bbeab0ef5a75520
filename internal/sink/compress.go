package sink

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Compression selects the transform applied to a destination.
type Compression int

const (
	Auto Compression = iota // infer from the destination name
	None
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "auto"
}

// ParseCompression accepts auto, none, gzip/gz and zstd/zst.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "none", "u", "plain":
		return None, nil
	case "gzip", "gz", "g":
		return Gzip, nil
	case "zstd", "zst", "z":
		return Zstd, nil
	}
	return Auto, fmt.Errorf("unknown compression %q (want auto, none, gzip or zstd)", s)
}

// Infer picks a compression from a file extension; stdout is uncompressed.
func Infer(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".bgz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	}
	return None
}

// Ext is the suffix appended to derived file names.
func (c Compression) Ext() string {
	switch c {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

func (c Compression) wrap(w io.Writer, level int) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		if level == 0 {
			level = pgzip.DefaultCompression
		}
		zw, err := pgzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		return zw, nil
	case Zstd:
		opts := []zstd.EOption{}
		if level > 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		zw, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return zw, nil
	}
	return nil, nil
}
