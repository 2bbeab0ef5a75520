package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"bqtools/internal/record"
)

// Reader gives random access to the blocks of a container. It is safe for
// concurrent use: blocks are fetched with ReadAt.
type Reader struct {
	name   string
	ra     io.ReaderAt
	size   int64
	closer io.Closer

	hdr    Header
	blocks []blockRef
	total  uint64
	dec    *zstd.Decoder
}

// Open opens a container file. "-" reads standard input into memory.
func Open(path string) (*Reader, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return NewReader(bytes.NewReader(b), int64(len(b)), "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r, err := NewReader(f, st.Size(), path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader parses the header and block index of a container of the given size.
func NewReader(ra io.ReaderAt, size int64, name string) (*Reader, error) {
	buf := make([]byte, headerLen)
	if _, err := ra.ReadAt(buf, 0); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: %w: file too short", name, ErrFormat)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	hdr, err := parseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r := &Reader{name: name, ra: ra, size: size, hdr: hdr}
	if hdr.Codec == CodecZstd {
		if r.dec, err = NewZstdDecoder(); err != nil {
			return nil, err
		}
	}
	ok, err := r.readIndex()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !ok {
		if err := r.scanBlocks(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return r, nil
}

func (r *Reader) readIndex() (bool, error) {
	if r.size < headerLen+trailerLen {
		return false, nil
	}
	tr := make([]byte, trailerLen)
	if _, err := r.ra.ReadAt(tr, r.size-trailerLen); err != nil {
		return false, err
	}
	if [8]byte(tr[16:24]) != trailerMagic {
		return false, nil
	}
	idxOff := binary.LittleEndian.Uint64(tr[0:8])
	n := binary.LittleEndian.Uint64(tr[8:16])
	if n > uint64(r.size-trailerLen-headerLen)/indexEntryLen {
		return false, fmt.Errorf("%w: index claims %d blocks", ErrFormat, n)
	}
	if idxOff < headerLen || idxOff+n*indexEntryLen != uint64(r.size-trailerLen) {
		return false, fmt.Errorf("%w: index does not fit file", ErrFormat)
	}
	idx := make([]byte, n*indexEntryLen)
	if _, err := r.ra.ReadAt(idx, int64(idxOff)); err != nil {
		return false, err
	}
	r.blocks = make([]blockRef, n)
	var first uint64
	for i := range r.blocks {
		e := idx[i*indexEntryLen:]
		off := binary.LittleEndian.Uint64(e[0:8])
		if off < headerLen || off >= idxOff {
			return false, fmt.Errorf("%w: block %d offset %d out of range", ErrFormat, i, off)
		}
		r.blocks[i] = blockRef{offset: off, nrec: binary.LittleEndian.Uint32(e[8:12]), first: first}
		first += uint64(r.blocks[i].nrec)
	}
	r.total = first
	return true, nil
}

// scanBlocks rebuilds the index of a container whose trailer was never written.
func (r *Reader) scanBlocks() error {
	off := int64(headerLen)
	bh := make([]byte, blockHeaderLen)
	var first uint64
	for off+blockHeaderLen <= r.size {
		if _, err := r.ra.ReadAt(bh, off); err != nil {
			return err
		}
		h, ok := parseBlockHeader(bh)
		if !ok {
			return fmt.Errorf("%w: no block at offset %d", ErrFormat, off)
		}
		end := off + blockHeaderLen + int64(h.payloadLen)
		if end > r.size {
			return fmt.Errorf("%w: truncated block at offset %d", ErrFormat, off)
		}
		r.blocks = append(r.blocks, blockRef{offset: uint64(off), nrec: h.nrec, first: first})
		first += uint64(h.nrec)
		off = end
	}
	if off != r.size {
		return fmt.Errorf("%w: %d trailing bytes", ErrFormat, r.size-off)
	}
	r.total = first
	return nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) Name() string { return r.name }
func (r *Reader) Header() Header { return r.hdr }
func (r *Reader) Metadata() record.Metadata { return r.hdr.Metadata() }
func (r *Reader) NumBlocks() int { return len(r.blocks) }
func (r *Reader) NumRecords() uint64 { return r.total }

// ReadBlock decodes block i.
func (r *Reader) ReadBlock(i int) (*record.Batch, error) {
	raw, bh, err := r.rawBlock(i)
	if err != nil {
		return nil, err
	}
	b, err := decodeBlock(raw[blockHeaderLen:], bh, r.hdr, r.dec, r.blocks[i].first)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}
	return b, nil
}

// rawBlock returns block i including its header, still encoded.
func (r *Reader) rawBlock(i int) ([]byte, blockHeader, error) {
	if i < 0 || i >= len(r.blocks) {
		return nil, blockHeader{}, fmt.Errorf("block %d out of range [0,%d)", i, len(r.blocks))
	}
	ref := r.blocks[i]
	head := make([]byte, blockHeaderLen)
	if _, err := r.ra.ReadAt(head, int64(ref.offset)); err != nil {
		return nil, blockHeader{}, fmt.Errorf("%s: block %d: %w", r.name, i, err)
	}
	bh, ok := parseBlockHeader(head)
	if !ok || bh.nrec != ref.nrec {
		return nil, blockHeader{}, fmt.Errorf("%s: %w: block %d header mismatch", r.name, ErrFormat, i)
	}
	if int64(bh.payloadLen) > r.size-int64(ref.offset)-blockHeaderLen {
		return nil, blockHeader{}, fmt.Errorf("%s: %w: block %d payload runs past end of file", r.name, ErrFormat, i)
	}
	raw := make([]byte, blockHeaderLen+int(bh.payloadLen))
	copy(raw, head)
	if _, err := r.ra.ReadAt(raw[blockHeaderLen:], int64(ref.offset)+blockHeaderLen); err != nil {
		return nil, blockHeader{}, fmt.Errorf("%s: block %d: %w", r.name, i, err)
	}
	return raw, bh, nil
}

// Cursor hands out blocks to concurrent callers; each block is returned once.
type Cursor struct {
	r    *Reader
	next atomic.Int64
}

// Cursor returns a fresh cursor positioned at the first block.
func (r *Reader) Cursor() *Cursor { return &Cursor{r: r} }

// Next claims the next unread block. It reports false once every block is claimed.
func (c *Cursor) Next() (*record.Batch, bool, error) {
	i := c.next.Add(1) - 1
	if i >= int64(len(c.r.blocks)) {
		return nil, false, nil
	}
	b, err := c.r.ReadBlock(int(i))
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// RangeIter yields the records in [start,end) in source order.
type RangeIter struct {
	r          *Reader
	start, end uint64
	blk        int
}

// Range seeks to record start. end is clamped to the record count.
func (r *Reader) Range(start, end uint64) *RangeIter {
	if end > r.total {
		end = r.total
	}
	blk := sort.Search(len(r.blocks), func(i int) bool {
		b := r.blocks[i]
		return b.first+uint64(b.nrec) > start
	})
	return &RangeIter{r: r, start: start, end: end, blk: blk}
}

// Next returns the next batch of the range.
func (it *RangeIter) Next() (*record.Batch, bool, error) {
	for it.start < it.end && it.blk < len(it.r.blocks) {
		b, err := it.r.ReadBlock(it.blk)
		it.blk++
		if err != nil {
			return nil, false, err
		}
		lo := it.start - b.Start
		hi := uint64(len(b.Records))
		if b.Start+hi > it.end {
			hi = it.end - b.Start
		}
		if lo >= hi {
			continue
		}
		b.Records = b.Records[lo:hi]
		b.Start += lo
		it.start = b.Start + uint64(len(b.Records))
		return b, true, nil
	}
	return nil, false, nil
}
