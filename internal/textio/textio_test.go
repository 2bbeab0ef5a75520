package textio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func drain(t *testing.T, s *Source) (n int, batches int) {
	t.Helper()
	for {
		b, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			return
		}
		batches++
		n += b.Len()
	}
}

func TestPairedFastq(t *testing.T) {
	dir := t.TempDir()
	r1 := writeFile(t, dir, "r1.fq", "@a/1\nACGT\n+\nIIII\n@b/1\nGGGG\n+\nJJJJ\n@c/1\nTTTT\n+\nKKKK\n")
	r2 := writeFile(t, dir, "r2.fq", "@a/2\nCC\n+\n##\n@b/2\nAA\n+\n$$\n@c/2\nGG\n+\n%%\n")

	s, err := Open(Options{Inputs: []string{r1, r2}, Paired: true, BatchSize: 2})
	require.NoError(t, err)
	defer s.Close()
	m := s.Metadata()
	require.True(t, m.Paired)
	require.True(t, m.Quality)
	require.True(t, m.Headers)

	b, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(0), b.Start)
	require.Len(t, b.Records, 2)
	require.Equal(t, "ACGT", string(b.Records[0].Seq))
	require.Equal(t, "CC", string(b.Records[0].XSeq))
	require.Equal(t, "##", string(b.Records[0].XQual))
	require.Equal(t, "a/2", string(b.Records[0].XHeader))

	b, ok, err = s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), b.Start)
	require.Equal(t, "c/1", string(b.Records[0].Header))

	_, ok, err = s.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPairedLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	r1 := writeFile(t, dir, "r1.fa", ">a\nACGT\n>b\nAC\n")
	r2 := writeFile(t, dir, "r2.fa", ">a\nACGT\n")
	s, err := Open(Options{Inputs: []string{r1, r2}, Paired: true})
	require.NoError(t, err)
	defer s.Close()
	_, _, err = s.Next()
	require.ErrorIs(t, err, ErrMateMismatch)
}

func TestMultipleInputsTagFlag(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.fa", ">x\nACGT\n>y\nAAAA\n")
	b := writeFile(t, dir, "b.fa", ">z\nCCCC\n")
	s, err := Open(Options{Inputs: []string{a, b}, BatchSize: 10})
	require.NoError(t, err)
	defer s.Close()
	require.False(t, s.Metadata().Quality)
	require.True(t, s.Metadata().Flags)

	batch, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, batch.Records, 3)
	require.EqualValues(t, 0, batch.Records[1].Flag)
	require.EqualValues(t, 1, batch.Records[2].Flag)
	_, hasQual := batch.Records[0].Quality()
	require.False(t, hasQual)
}

func TestInterleaved(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "i.fa", ">a/1\nAC\n>a/2\nGT\n>b/1\nAA\n>b/2\nTT\n")
	s, err := Open(Options{Inputs: []string{in}, Interleaved: true, BatchSize: 1})
	require.NoError(t, err)
	defer s.Close()
	n, batches := drain(t, s)
	require.Equal(t, 2, n)
	require.Equal(t, 2, batches)
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	fa := writeFile(t, dir, "x.fa", "\n>x\nACGT\n")
	fq := writeFile(t, dir, "x.fq", "@x\nACGT\n+\nIIII\n")
	bq := writeFile(t, dir, "x.bq", "BQTK\x01\x00\x00\x00")
	for path, want := range map[string]Format{fa: FormatFASTA, fq: FormatFASTQ, bq: FormatContainer} {
		got, err := DetectFormat(path)
		require.NoError(t, err)
		require.Equal(t, want, got, path)
	}
}
