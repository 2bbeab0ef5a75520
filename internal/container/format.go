// Package container reads and writes the binary record container.
//
// Layout (little endian):
//
//	header   16 bytes  "BQTK" version flags codec pad blockSize reserved
//	block    16 bytes  "BLK1" nrec rawLen payloadLen, then payload
//	...
//	index    16 bytes per block: offset nrec pad
//	trailer  24 bytes  indexOffset nBlocks "BQTKIDX1"
//
// Payloads are a varint-framed run of records, optionally zstd compressed.
// A container missing its trailer is still readable: the block index is
// rebuilt by walking block headers.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"

	"bqtools/internal/record"
)

const (
	Version = 1

	headerLen      = 16
	blockHeaderLen = 16
	indexEntryLen  = 16
	trailerLen     = 24

	DefaultBlockSize = 8192
)

var (
	fileMagic    = [4]byte{'B', 'Q', 'T', 'K'}
	blockMagic   = [4]byte{'B', 'L', 'K', '1'}
	trailerMagic = [8]byte{'B', 'Q', 'T', 'K', 'I', 'D', 'X', '1'}
)

// Header flag bits.
const (
	FlagPaired uint8 = 1 << iota
	FlagQuality
	FlagHeaders
	FlagRecordFlags
)

// Codec identifies the block payload compression.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
)

var (
	// ErrFormat marks an unrecognized or corrupt container.
	ErrFormat = errors.New("invalid container format")
	// ErrInconsistentHeaders is returned when containers cannot be joined.
	ErrInconsistentHeaders = errors.New("inconsistent container headers")
	// ErrRecordShape is returned when a record does not fit the container metadata.
	ErrRecordShape = errors.New("record does not match container layout")
)

// Header is the fixed container preamble.
type Header struct {
	Version   uint8
	Flags     uint8
	Codec     Codec
	BlockSize uint32
}

// NewHeader builds a header for records described by meta.
func NewHeader(meta record.Metadata, blockSize int, codec Codec) Header {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	var f uint8
	if meta.Paired {
		f |= FlagPaired
	}
	if meta.Quality {
		f |= FlagQuality
	}
	if meta.Headers {
		f |= FlagHeaders
	}
	if meta.Flags {
		f |= FlagRecordFlags
	}
	return Header{Version: Version, Flags: f, Codec: codec, BlockSize: uint32(blockSize)}
}

// Metadata decodes the flag bits.
func (h Header) Metadata() record.Metadata {
	return record.Metadata{
		Paired:  h.Flags&FlagPaired != 0,
		Quality: h.Flags&FlagQuality != 0,
		Headers: h.Flags&FlagHeaders != 0,
		Flags:   h.Flags&FlagRecordFlags != 0,
	}
}

func (h Header) marshal() []byte {
	b := make([]byte, headerLen)
	copy(b[0:4], fileMagic[:])
	b[4] = h.Version
	b[5] = h.Flags
	b[6] = byte(h.Codec)
	binary.LittleEndian.PutUint32(b[8:12], h.BlockSize)
	return b
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < headerLen {
		return Header{}, fmt.Errorf("%w: short header", ErrFormat)
	}
	if [4]byte(b[0:4]) != fileMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrFormat, b[0:4])
	}
	h := Header{
		Version:   b[4],
		Flags:     b[5],
		Codec:     Codec(b[6]),
		BlockSize: binary.LittleEndian.Uint32(b[8:12]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}
	if h.Codec > CodecZstd {
		return Header{}, fmt.Errorf("%w: unknown codec %d", ErrFormat, h.Codec)
	}
	return h, nil
}

// IsContainer reports whether b starts with the container magic.
func IsContainer(b []byte) bool {
	return len(b) >= 4 && [4]byte(b[0:4]) == fileMagic
}

type blockHeader struct {
	nrec       uint32
	rawLen     uint32
	payloadLen uint32
}

func (bh blockHeader) marshal() []byte {
	b := make([]byte, blockHeaderLen)
	copy(b[0:4], blockMagic[:])
	binary.LittleEndian.PutUint32(b[4:8], bh.nrec)
	binary.LittleEndian.PutUint32(b[8:12], bh.rawLen)
	binary.LittleEndian.PutUint32(b[12:16], bh.payloadLen)
	return b
}

func parseBlockHeader(b []byte) (blockHeader, bool) {
	if len(b) < blockHeaderLen || [4]byte(b[0:4]) != blockMagic {
		return blockHeader{}, false
	}
	return blockHeader{
		nrec:       binary.LittleEndian.Uint32(b[4:8]),
		rawLen:     binary.LittleEndian.Uint32(b[8:12]),
		payloadLen: binary.LittleEndian.Uint32(b[12:16]),
	}, true
}

type blockRef struct {
	offset uint64
	nrec   uint32
	first  uint64
}
