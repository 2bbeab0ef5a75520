package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bqtools/internal/record"
)

func pairedRecords(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		s := []byte(fmt.Sprintf("ACGT%04d", i))
		for j := range s[4:] {
			s[4+j] = "ACGT"[int(s[4+j]-'0')%4]
		}
		x := bytes.Repeat([]byte("T"), i%5+1)
		out[i] = record.Record{
			Seq: s, XSeq: x,
			Qual: bytes.Repeat([]byte("I"), len(s)), XQual: bytes.Repeat([]byte("#"), len(x)),
			Header: []byte(fmt.Sprintf("r%d/1", i)), XHeader: []byte(fmt.Sprintf("r%d/2", i)),
		}
	}
	return out
}

func writeContainer(t *testing.T, h Header, recs []record.Record, perBlock int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, h)
	require.NoError(t, err)
	var enc = NewBlockEncoder(h, nil)
	if h.Codec == CodecZstd {
		z, err := NewZstdEncoder(1)
		require.NoError(t, err)
		enc = NewBlockEncoder(h, z)
	}
	for i := 0; i < len(recs); i += perBlock {
		j := min(i+perBlock, len(recs))
		b, err := enc.Encode(recs[i:j])
		require.NoError(t, err)
		require.NoError(t, w.WriteBlock(b))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRoundTripPairedWithQualityAndHeaders(t *testing.T) {
	meta := record.Metadata{Paired: true, Quality: true, Headers: true}
	for _, codec := range []Codec{CodecNone, CodecZstd} {
		recs := pairedRecords(23)
		data := writeContainer(t, NewHeader(meta, 5, codec), recs, 5)

		r, err := NewReader(bytes.NewReader(data), int64(len(data)), "mem")
		require.NoError(t, err)
		require.Equal(t, meta, r.Metadata())
		require.EqualValues(t, 23, r.NumRecords())
		require.Equal(t, 5, r.NumBlocks())

		var got []record.Record
		c := r.Cursor()
		for {
			b, ok, err := c.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			got = append(got, b.Records...)
		}
		require.Len(t, got, len(recs))
		for i := range recs {
			require.Equal(t, uint64(i), got[i].Index)
			require.Equal(t, recs[i].Seq, got[i].Seq)
			require.Equal(t, recs[i].XSeq, got[i].XSeq)
			require.Equal(t, recs[i].Qual, got[i].Qual)
			require.Equal(t, recs[i].XQual, got[i].XQual)
			require.Equal(t, recs[i].Header, got[i].Header)
			require.Equal(t, recs[i].XHeader, got[i].XHeader)
		}
	}
}

func TestNoQualityIsAbsentNotEmpty(t *testing.T) {
	h := NewHeader(record.Metadata{}, 4, CodecNone)
	data := writeContainer(t, h, []record.Record{{Seq: []byte("ACGT")}, {Seq: []byte("")}}, 4)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), "mem")
	require.NoError(t, err)
	b, err := r.ReadBlock(0)
	require.NoError(t, err)
	require.Len(t, b.Records, 2)
	_, ok := b.Records[0].Quality()
	require.False(t, ok)
	require.False(t, b.Records[0].IsPaired())
}

func TestBadMagicIsFormatError(t *testing.T) {
	data := []byte("@read1\nACGT\n+\nIIII\n")
	_, err := NewReader(bytes.NewReader(data), int64(len(data)), "x.fq")
	require.ErrorIs(t, err, ErrFormat)
}

func TestRecordShapeMismatch(t *testing.T) {
	enc := NewBlockEncoder(NewHeader(record.Metadata{Paired: true}, 0, CodecNone), nil)
	_, err := enc.Encode([]record.Record{{Seq: []byte("AC")}})
	require.ErrorIs(t, err, ErrRecordShape)
}

func TestMissingTrailerRebuildsIndex(t *testing.T) {
	h := NewHeader(record.Metadata{Quality: true}, 3, CodecZstd)
	recs := make([]record.Record, 10)
	for i := range recs {
		recs[i] = record.Record{Seq: []byte("ACGTN"), Qual: []byte("IIIII")}
	}
	data := writeContainer(t, h, recs, 3)
	// drop index (4 blocks) and trailer
	cut := data[:len(data)-trailerLen-4*indexEntryLen]
	r, err := NewReader(bytes.NewReader(cut), int64(len(cut)), "cut")
	require.NoError(t, err)
	require.EqualValues(t, 10, r.NumRecords())
	require.Equal(t, 4, r.NumBlocks())

	trunc := cut[:len(cut)-2]
	_, err = NewReader(bytes.NewReader(trunc), int64(len(trunc)), "trunc")
	require.True(t, errors.Is(err, ErrFormat), "got %v", err)
}

func TestCorruptLengthsAreFormatErrors(t *testing.T) {
	h := NewHeader(record.Metadata{Paired: true, Quality: true, Headers: true}, 4, CodecZstd)
	data := writeContainer(t, h, pairedRecords(10), 4)
	corrupt := func(at int, v uint64, width int) []byte {
		c := bytes.Clone(data)
		if width == 8 {
			binary.LittleEndian.PutUint64(c[at:], v)
		} else {
			binary.LittleEndian.PutUint32(c[at:], uint32(v))
		}
		return c
	}

	countAt := len(data) - trailerLen + 8
	for _, n := range []uint64{3 + 1<<60, 1 << 62, ^uint64(0)} {
		c := corrupt(countAt, n, 8)
		_, err := NewReader(bytes.NewReader(c), int64(len(c)), "trailer")
		require.ErrorIs(t, err, ErrFormat, "block count %d", n)
	}

	for name, c := range map[string][]byte{
		"payload": corrupt(headerLen+12, 0xffffffff, 4),
		"raw":     corrupt(headerLen+8, 0xfffffff0, 4),
	} {
		r, err := NewReader(bytes.NewReader(c), int64(len(c)), name)
		require.NoError(t, err, name)
		_, err = r.ReadBlock(0)
		require.ErrorIs(t, err, ErrFormat, name)
		require.NoError(t, r.Close())
	}
}

func TestRangeIsOrderedAndExact(t *testing.T) {
	h := NewHeader(record.Metadata{Paired: true, Quality: true, Headers: true}, 4, CodecZstd)
	data := writeContainer(t, h, pairedRecords(30), 4)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), "mem")
	require.NoError(t, err)

	for _, span := range [][2]uint64{{0, 30}, {3, 9}, {8, 8}, {29, 100}, {12, 13}} {
		it := r.Range(span[0], span[1])
		want := span[0]
		for {
			b, ok, err := it.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			require.Equal(t, want, b.Start)
			for _, rec := range b.Records {
				require.Equal(t, want, rec.Index)
				want++
			}
		}
		require.Equal(t, min(span[1], 30), max(want, span[0]), "span %v", span)
	}
}

func TestConcat(t *testing.T) {
	dir := t.TempDir()
	h := NewHeader(record.Metadata{Paired: true, Quality: true, Headers: true}, 4, CodecZstd)
	a := filepath.Join(dir, "a.bq")
	b := filepath.Join(dir, "b.bq")
	require.NoError(t, os.WriteFile(a, writeContainer(t, h, pairedRecords(7), 4), 0o644))
	require.NoError(t, os.WriteFile(b, writeContainer(t, h, pairedRecords(5), 4), 0o644))

	var out bytes.Buffer
	n, err := Concat(&out, []string{a, b})
	require.NoError(t, err)
	require.EqualValues(t, 12, n)

	r, err := NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()), "cat")
	require.NoError(t, err)
	require.EqualValues(t, 12, r.NumRecords())
	last, err := r.ReadBlock(r.NumBlocks() - 1)
	require.NoError(t, err)
	require.Equal(t, []byte("r4/1"), last.Records[len(last.Records)-1].Header)

	other := filepath.Join(dir, "c.bq")
	require.NoError(t, os.WriteFile(other, writeContainer(t, NewHeader(record.Metadata{}, 4, CodecZstd), []record.Record{{Seq: []byte("A")}}, 4), 0o644))
	_, err = Concat(&bytes.Buffer{}, []string{a, other})
	require.ErrorIs(t, err, ErrInconsistentHeaders)
}
