package record

import "testing"

func TestQualityAbsentVersusEmpty(t *testing.T) {
	r := Record{Seq: []byte("ACGT")}
	if _, ok := r.Quality(); ok {
		t.Fatalf("nil quality must report absent")
	}
	r.Qual = []byte{}
	if q, ok := r.Quality(); !ok || len(q) != 0 {
		t.Fatalf("empty quality must report present: ok=%v q=%q", ok, q)
	}
	if r.IsPaired() {
		t.Fatalf("unpaired record reported paired")
	}
	r.XSeq = []byte("TT")
	if !r.IsPaired() {
		t.Fatalf("paired record reported unpaired")
	}
}

func TestParseMate(t *testing.T) {
	for in, want := range map[string]Mate{"1": MatePrimary, "2": MateExtended, "both": MateBoth, "": MateBoth} {
		got, err := ParseMate(in)
		if err != nil || got != want {
			t.Fatalf("ParseMate(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMate("3"); err == nil {
		t.Fatalf("expected error for mate 3")
	}
}
