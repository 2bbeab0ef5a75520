package container

import (
	"fmt"
	"io"
)

// Concat joins the containers at paths into dst without re-encoding blocks.
// Every input must share the first input's flags and codec. It returns the
// number of records written.
func Concat(dst io.Writer, paths []string) (uint64, error) {
	if len(paths) == 0 {
		return 0, fmt.Errorf("no inputs")
	}
	readers := make([]*Reader, 0, len(paths))
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()
	for _, p := range paths {
		r, err := Open(p)
		if err != nil {
			return 0, err
		}
		readers = append(readers, r)
	}

	h := readers[0].Header()
	for _, r := range readers[1:] {
		rh := r.Header()
		if rh.Flags != h.Flags || rh.Codec != h.Codec {
			return 0, fmt.Errorf("%w: %s (flags=%#x codec=%d) vs %s (flags=%#x codec=%d)",
				ErrInconsistentHeaders, readers[0].Name(), h.Flags, h.Codec, r.Name(), rh.Flags, rh.Codec)
		}
		if rh.BlockSize > h.BlockSize {
			h.BlockSize = rh.BlockSize
		}
	}

	w, err := NewWriter(dst, h)
	if err != nil {
		return 0, err
	}
	for _, r := range readers {
		for i := 0; i < r.NumBlocks(); i++ {
			raw, bh, err := r.rawBlock(i)
			if err != nil {
				return 0, err
			}
			if err := w.writeRaw(bh, raw); err != nil {
				return 0, err
			}
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Records(), nil
}
