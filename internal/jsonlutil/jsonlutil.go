// Package jsonlutil emits JSON Lines reports (one value per line).
package jsonlutil

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"bqtools/internal/writers"
)

// Reuse a 64 KiB buffered writer across report writers.
var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// Start spins up an encoder goroutine for values of type T.
//   - encode: fn to encode one value (convert to wire type & enc.Encode)
//   - isBroken: recognizer for broken/closed pipe errors to suppress them
//
// After a failure the goroutine keeps draining the channel so senders never
// block; the error is delivered once the channel is closed.
func Start[T any](out io.Writer, bufSize int, encode func(*json.Encoder, T) error, isBroken func(error) bool) (chan<- T, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan T, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bwPool.Get().(*bufio.Writer)
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bwPool.Put(bw)
		}()

		enc := json.NewEncoder(bw)
		var err error
		for v := range in {
			if err != nil {
				continue
			}
			err = encode(enc, v)
		}
		if err == nil {
			err = bw.Flush()
		}
		if err != nil && isBroken(err) {
			err = nil
		}
		done <- err
	}()

	return in, done
}

// Write encodes vals as JSON Lines. A reader that went away is not an error.
func Write[T any](out io.Writer, vals []T) error {
	in, done := Start(out, len(vals), func(enc *json.Encoder, v T) error { return enc.Encode(v) }, writers.IsBrokenPipe)
	for _, v := range vals {
		in <- v
	}
	close(in)
	return <-done
}

// WritePretty writes v as one indented JSON document. A reader that went
// away is not an error.
func WritePretty(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil && !writers.IsBrokenPipe(err) {
		return err
	}
	return nil
}
