package sink

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"

	"bqtools/internal/writers"
)

func TestCompressedDestinationsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	gz := filepath.Join(dir, "out.fq.gz")
	zs := filepath.Join(dir, "out.fq.zst")

	for _, p := range []string{gz, zs} {
		s, err := Open(Spec{Path: p})
		require.NoError(t, err)
		require.NoError(t, s.Write([]byte("@a\nACGT\n+\nIIII\n")))
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
	}

	f, err := os.Open(gz)
	require.NoError(t, err)
	defer f.Close()
	zr, err := pgzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "@a\nACGT\n+\nIIII\n", string(got))

	raw, err := os.ReadFile(zs)
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	got, err = dec.DecodeAll(raw, nil)
	require.NoError(t, err)
	require.Equal(t, "@a\nACGT\n+\nIIII\n", string(got))
}

func TestExplicitCompressionOverridesName(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.txt")
	s, err := Open(Spec{Path: p, Compression: Gzip})
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("x\n")))
	require.NoError(t, s.Close())
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0x8b}, raw[:2])
}

func TestConcurrentWritesNeverInterleave(t *testing.T) {
	var buf bytes.Buffer
	s, err := FromWriter(&buf, "mem", None)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(c byte) {
			defer wg.Done()
			chunk := bytes.Repeat([]byte{c}, 1000)
			chunk = append(chunk, '\n')
			for i := 0; i < 50; i++ {
				require.NoError(t, s.Write(chunk))
			}
		}(byte('a' + w))
	}
	wg.Wait()
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 400)
	for _, l := range lines {
		require.Equal(t, strings.Repeat(l[:1], 1000), l)
	}
}

func TestSplitPairsStayInStep(t *testing.T) {
	dir := t.TempDir()
	p1, p2 := filepath.Join(dir, "o_R1.fa"), filepath.Join(dir, "o_R2.fa")
	s, err := Open(Spec{Path: p1, Path2: p2})
	require.NoError(t, err)
	require.True(t, s.Split())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tag := string(rune('A' + id))
			for i := 0; i < 100; i++ {
				require.NoError(t, s.WritePair([]byte(tag+"\n"), []byte(tag+"\n")))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	a, _ := os.ReadFile(p1)
	b, _ := os.ReadFile(p2)
	require.Equal(t, string(a), string(b))
}

func TestSplitPathsMustDiffer(t *testing.T) {
	p := filepath.Join(t.TempDir(), "same.fq")
	_, err := Open(Spec{Path: p, Path2: p})
	require.Error(t, err)
}

type failWriter struct{ err error }

func (f failWriter) Write([]byte) (int, error) { return 0, f.err }

func TestPrimaryFailureAbortsMate(t *testing.T) {
	p, err := newDest("r1", failWriter{err: syscall.EPIPE}, nil, None, 0)
	require.NoError(t, err)
	var good bytes.Buffer
	x, err := newDest("r2", &good, nil, None, 0)
	require.NoError(t, err)
	s := &Sink{primary: p, extended: x}

	big := bytes.Repeat([]byte("A"), bufSize+1)
	err = s.WritePair(big, []byte("mate\n"))
	require.Error(t, err)
	require.True(t, errors.Is(err, writers.ErrBrokenPipe), "got %v", err)
	var we *WriteError
	require.ErrorAs(t, err, &we)
	require.Equal(t, "r1", we.Dest)

	err = s.Write([]byte("later"))
	require.Error(t, err)

	err = s.extended.write([]byte("x"))
	require.ErrorIs(t, err, ErrMateAborted)
	require.NoError(t, s.Close())
	require.Zero(t, good.Len())
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": Auto, "gz": Gzip, "zstd": Zstd, "none": None} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseCompression("lz4")
	require.Error(t, err)
	require.Equal(t, Gzip, Infer("a.fq.gz"))
	require.Equal(t, None, Infer("-"))
}
