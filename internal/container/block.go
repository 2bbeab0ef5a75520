package container

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"bqtools/internal/record"
)

// EncodedBlock is a block ready to be appended by a Writer. Payload is only
// valid until the producing BlockEncoder is used again.
type EncodedBlock struct {
	NRec    uint32
	RawLen  uint32
	Payload []byte
}

// BlockEncoder serializes record runs. It keeps scratch buffers, so each
// worker owns one; the zstd encoder may be shared.
type BlockEncoder struct {
	meta  record.Metadata
	codec Codec
	enc   *zstd.Encoder
	raw   []byte
	out   []byte
}

// NewBlockEncoder returns an encoder for h. enc may be nil when h.Codec is CodecNone.
func NewBlockEncoder(h Header, enc *zstd.Encoder) *BlockEncoder {
	return &BlockEncoder{meta: h.Metadata(), codec: h.Codec, enc: enc}
}

// NewZstdEncoder maps a 1..4 level onto zstd speed presets.
func NewZstdEncoder(level int) (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel(level))), zstd.WithEncoderConcurrency(1))
}

func zstdLevel(level int) int {
	switch {
	case level <= 0:
		return 3
	case level == 1:
		return 1
	case level == 2:
		return 3
	case level == 3:
		return 7
	default:
		return 11
	}
}

// Every record takes at least one byte, and no block expands past
// maxBlockRaw. Decode buffers grow from preallocRaw so a corrupt length
// cannot force a large allocation up front.
const (
	maxBlockRaw = 1 << 30
	preallocRaw = 4 << 20
)

// NewZstdDecoder returns a decoder safe for concurrent DecodeAll calls.
func NewZstdDecoder() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxBlockRaw))
}

// Encode frames recs into one block.
func (e *BlockEncoder) Encode(recs []record.Record) (EncodedBlock, error) {
	raw := e.raw[:0]
	for i := range recs {
		r := &recs[i]
		if err := e.check(r); err != nil {
			return EncodedBlock{}, err
		}
		raw = appendBytes(raw, r.Seq)
		if e.meta.Paired {
			raw = appendBytes(raw, r.XSeq)
		}
		if e.meta.Quality {
			raw = append(raw, r.Qual...)
			if e.meta.Paired {
				raw = append(raw, r.XQual...)
			}
		}
		if e.meta.Headers {
			raw = appendBytes(raw, r.Header)
			if e.meta.Paired {
				raw = appendBytes(raw, r.XHeader)
			}
		}
		if e.meta.Flags {
			raw = binary.AppendUvarint(raw, r.Flag)
		}
	}
	e.raw = raw

	payload := raw
	if e.codec == CodecZstd {
		e.out = e.enc.EncodeAll(raw, e.out[:0])
		payload = e.out
	}
	return EncodedBlock{NRec: uint32(len(recs)), RawLen: uint32(len(raw)), Payload: payload}, nil
}

func (e *BlockEncoder) check(r *record.Record) error {
	if e.meta.Paired != r.IsPaired() {
		return fmt.Errorf("%w: paired=%v but record has mate=%v", ErrRecordShape, e.meta.Paired, r.IsPaired())
	}
	if e.meta.Quality {
		if len(r.Qual) != len(r.Seq) {
			return fmt.Errorf("%w: quality length %d != sequence length %d", ErrRecordShape, len(r.Qual), len(r.Seq))
		}
		if e.meta.Paired && len(r.XQual) != len(r.XSeq) {
			return fmt.Errorf("%w: mate quality length %d != mate length %d", ErrRecordShape, len(r.XQual), len(r.XSeq))
		}
	}
	return nil
}

func appendBytes(dst, b []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// decodeBlock expands payload into a batch. Record slices alias one buffer
// owned by the batch.
func decodeBlock(payload []byte, bh blockHeader, h Header, dec *zstd.Decoder, first uint64) (*record.Batch, error) {
	if bh.rawLen > maxBlockRaw || bh.nrec > bh.rawLen {
		return nil, fmt.Errorf("%w: block at record %d: %d records in %d bytes", ErrFormat, first, bh.nrec, bh.rawLen)
	}
	raw := payload
	if h.Codec == CodecZstd {
		var err error
		raw, err = dec.DecodeAll(payload, make([]byte, 0, min(bh.rawLen, preallocRaw)))
		if err != nil {
			return nil, fmt.Errorf("%w: block at record %d: %v", ErrFormat, first, err)
		}
	}
	if uint32(len(raw)) != bh.rawLen {
		return nil, fmt.Errorf("%w: block at record %d: raw length %d, want %d", ErrFormat, first, len(raw), bh.rawLen)
	}

	meta := h.Metadata()
	b := &record.Batch{Start: first, Records: make([]record.Record, bh.nrec)}
	p := parser{buf: raw}
	for i := range b.Records {
		r := &b.Records[i]
		r.Index = first + uint64(i)
		r.Seq = p.bytes()
		if meta.Paired {
			r.XSeq = p.bytes()
		}
		if meta.Quality {
			r.Qual = p.fixed(len(r.Seq))
			if meta.Paired {
				r.XQual = p.fixed(len(r.XSeq))
			}
		}
		if meta.Headers {
			r.Header = p.bytes()
			if meta.Paired {
				r.XHeader = p.bytes()
			}
		}
		if meta.Flags {
			r.Flag = p.uvarint()
		}
		if p.err != nil {
			return nil, fmt.Errorf("%w: block at record %d: record %d truncated", ErrFormat, first, i)
		}
	}
	if len(p.buf) != 0 {
		return nil, fmt.Errorf("%w: block at record %d: %d trailing bytes", ErrFormat, first, len(p.buf))
	}
	return b, nil
}

type parser struct {
	buf []byte
	err error
}

func (p *parser) uvarint() uint64 {
	if p.err != nil {
		return 0
	}
	v, n := binary.Uvarint(p.buf)
	if n <= 0 {
		p.err = ErrFormat
		return 0
	}
	p.buf = p.buf[n:]
	return v
}

func (p *parser) bytes() []byte {
	n := p.uvarint()
	if p.err != nil {
		return nil
	}
	return p.fixed(int(n))
}

func (p *parser) fixed(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || n > len(p.buf) {
		p.err = ErrFormat
		return nil
	}
	out := p.buf[:n:n]
	p.buf = p.buf[n:]
	return out
}
