package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

var errWriterClosed = errors.New("container writer closed")

// Writer appends blocks to a container stream. WriteBlock is safe for
// concurrent use; blocks are numbered in the order they are written.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	hdr    Header
	off    uint64
	blocks []blockRef
	total  uint64
	closed bool
}

// NewWriter writes the header to w.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if h.Version == 0 {
		h.Version = Version
	}
	if _, err := w.Write(h.marshal()); err != nil {
		return nil, err
	}
	return &Writer{w: w, hdr: h, off: headerLen}, nil
}

// Header returns the header this writer was created with.
func (w *Writer) Header() Header { return w.hdr }

// WriteBlock appends an encoded block.
func (w *Writer) WriteBlock(b EncodedBlock) error {
	bh := blockHeader{nrec: b.NRec, rawLen: b.RawLen, payloadLen: uint32(len(b.Payload))}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWriterClosed
	}
	if _, err := w.w.Write(bh.marshal()); err != nil {
		return err
	}
	if _, err := w.w.Write(b.Payload); err != nil {
		return err
	}
	w.append(bh)
	return nil
}

// writeRaw appends an already framed block (header included).
func (w *Writer) writeRaw(bh blockHeader, raw []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWriterClosed
	}
	if _, err := w.w.Write(raw); err != nil {
		return err
	}
	w.append(bh)
	return nil
}

func (w *Writer) append(bh blockHeader) {
	w.blocks = append(w.blocks, blockRef{offset: w.off, nrec: bh.nrec, first: w.total})
	w.off += blockHeaderLen + uint64(bh.payloadLen)
	w.total += uint64(bh.nrec)
}

// Records is the number of records written so far.
func (w *Writer) Records() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Close writes the block index and trailer. It does not close the
// underlying writer and is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	buf := make([]byte, 0, len(w.blocks)*indexEntryLen+trailerLen)
	for _, b := range w.blocks {
		buf = binary.LittleEndian.AppendUint64(buf, b.offset)
		buf = binary.LittleEndian.AppendUint32(buf, b.nrec)
		buf = binary.LittleEndian.AppendUint32(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint64(buf, w.off)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(w.blocks)))
	buf = append(buf, trailerMagic[:]...)
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
