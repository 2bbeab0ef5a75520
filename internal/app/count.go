package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"bqtools/internal/container"
	"bqtools/internal/jsonlutil"
)

// Info describes a container.
type Info struct {
	Path      string `json:"path"`
	Version   uint8  `json:"version"`
	Paired    bool   `json:"paired"`
	Quality   bool   `json:"quality"`
	Headers   bool   `json:"headers"`
	Flags     bool   `json:"flags"`
	Codec     string `json:"codec"`
	BlockSize uint32 `json:"block_size"`
	Blocks    int    `json:"blocks"`
	Records   uint64 `json:"records"`
}

// CountOptions configures count.
type CountOptions struct {
	Input  string
	Num    bool // print only the record count
	JSON   bool
	Pretty bool // indent the JSON object
}

// Inspect reads the header and index of a container.
func Inspect(path string) (Info, error) {
	r, err := container.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()
	h, meta := r.Header(), r.Metadata()
	codec := "none"
	if h.Codec == container.CodecZstd {
		codec = "zstd"
	}
	return Info{
		Path:      r.Name(),
		Version:   h.Version,
		Paired:    meta.Paired,
		Quality:   meta.Quality,
		Headers:   meta.Headers,
		Flags:     meta.Flags,
		Codec:     codec,
		BlockSize: h.BlockSize,
		Blocks:    r.NumBlocks(),
		Records:   r.NumRecords(),
	}, nil
}

// Count reports the record count and layout of a container.
func Count(_ context.Context, o CountOptions, stdout io.Writer) error {
	info, err := Inspect(o.Input)
	if err != nil {
		return err
	}
	switch {
	case o.Num:
		_, err = fmt.Fprintln(stdout, info.Records)
		return err
	case o.JSON && o.Pretty:
		return jsonlutil.WritePretty(stdout, info)
	case o.JSON:
		return jsonlutil.Write(stdout, []Info{info})
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path:\t%s\n", info.Path)
	fmt.Fprintf(tw, "version:\t%d\n", info.Version)
	fmt.Fprintf(tw, "paired:\t%t\n", info.Paired)
	fmt.Fprintf(tw, "quality:\t%t\n", info.Quality)
	fmt.Fprintf(tw, "headers:\t%t\n", info.Headers)
	fmt.Fprintf(tw, "flags:\t%t\n", info.Flags)
	fmt.Fprintf(tw, "codec:\t%s\n", info.Codec)
	fmt.Fprintf(tw, "block size:\t%d\n", info.BlockSize)
	fmt.Fprintf(tw, "blocks:\t%d\n", info.Blocks)
	fmt.Fprintf(tw, "records:\t%d\n", info.Records)
	return tw.Flush()
}
