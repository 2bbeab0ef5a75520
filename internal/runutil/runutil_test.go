package runutil

import "testing"

func TestThreads(t *testing.T) {
	if got := Threads(3); got != 3 {
		t.Fatalf("want 3, got %d", got)
	}
	if got := Threads(0); got < 1 {
		t.Fatalf("auto must be >= 1, got %d", got)
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"dir/s1_R1.fq.gz":   "s1_R1",
		"reads.FASTQ":       "reads",
		"x.fa.zst":          "x",
		"archive.bq":        "archive",
		"plain":             "plain",
		"-":                 "stdin",
		"sample.tar.gz":     "sample.tar",
		"/abs/path/r.fasta": "r",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Fatalf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveOutput(t *testing.T) {
	if got := DeriveOutput("data/r1.fq.gz", "bq"); got != "data/r1.bq" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitPaths(t *testing.T) {
	a, b := SplitPaths("out/x", "fq", ".gz")
	if a != "out/x_R1.fq.gz" || b != "out/x_R2.fq.gz" {
		t.Fatalf("got %q %q", a, b)
	}
}

func TestParseSpan(t *testing.T) {
	ok := map[string]Span{
		"":       FullSpan,
		"..":     FullSpan,
		"5..":    {Start: 5, End: -1},
		"..10":   {Start: 0, End: 10},
		"3..9":   {Start: 3, End: 9},
		" 2..2 ": {Start: 2, End: 2},
	}
	for in, want := range ok {
		got, err := ParseSpan(in)
		if err != nil || got != want {
			t.Fatalf("ParseSpan(%q) = %+v, %v; want %+v", in, got, err, want)
		}
	}
	for _, bad := range []string{"5", "a..3", "9..3", "-1..4", "..x"} {
		if _, err := ParseSpan(bad); err == nil {
			t.Fatalf("ParseSpan(%q) should fail", bad)
		}
	}
}

func TestSpanSlice(t *testing.T) {
	b := []byte("ACGTACGT")
	w, off := Span{Start: 2, End: 5}.Slice(b)
	if string(w) != "GTA" || off != 2 {
		t.Fatalf("got %q@%d", w, off)
	}
	w, off = Span{Start: 20, End: -1}.Slice(b)
	if len(w) != 0 || off != 8 {
		t.Fatalf("past end: got %q@%d", w, off)
	}
	if w, _ := FullSpan.Slice(nil); w != nil {
		t.Fatal("nil region must stay nil")
	}
	if s := (Span{Start: 4, End: -1}).String(); s != "4.." {
		t.Fatalf("String = %q", s)
	}
}
