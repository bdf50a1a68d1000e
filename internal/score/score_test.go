package score

import (
	"strings"
	"testing"
)

func sample(n int) string {
	return strings.TrimSpace(strings.Repeat("The quarterly report covers revenue and churn. ", n))
}

func TestScore_Deterministic(t *testing.T) {
	text := sample(10)
	a := Score(text, []string{"name"}, []string{"name"})
	b := Score(text, []string{"name"}, []string{"name"})
	if a != b {
		t.Fatalf("same text scored differently: %+v vs %+v", a, b)
	}
}

func TestScore_ResidueStrictlyLowersQuality(t *testing.T) {
	clean := sample(10)
	dirty := clean + " {pending_section}"
	cs := Score(clean, nil, nil)
	ds := Score(dirty, nil, nil)
	if ds.Quality >= cs.Quality {
		t.Fatalf("residue did not lower quality: clean=%v dirty=%v", cs.Quality, ds.Quality)
	}
}

func TestScore_MoreResidueScoresLower(t *testing.T) {
	one := Score(sample(10)+" {a}", nil, nil)
	two := Score(sample(10)+" {a} {b}", nil, nil)
	if two.Quality >= one.Quality {
		t.Fatalf("two residues should score below one: %v vs %v", two.Quality, one.Quality)
	}
}

func TestScore_CoverageRatio(t *testing.T) {
	text := sample(10)
	full := Score(text, []string{"a", "b"}, []string{"a", "b"})
	half := Score(text, []string{"a", "b"}, []string{"a"})
	if half.Quality >= full.Quality {
		t.Fatalf("partial coverage should score below full: %v vs %v", half.Quality, full.Quality)
	}
}

func TestScore_CountsAndReadingTime(t *testing.T) {
	s := Score("one two three four", nil, nil)
	if s.WordCount != 4 {
		t.Fatalf("word count = %d", s.WordCount)
	}
	if s.CharCount != len("one two three four") {
		t.Fatalf("char count = %d", s.CharCount)
	}
	// 4 words at 200 wpm is 1.2s, rounded up.
	if s.ReadingTimeSec != 2 {
		t.Fatalf("reading time = %d", s.ReadingTimeSec)
	}
}

func TestScore_EmptyText(t *testing.T) {
	s := Score("", nil, nil)
	if s.WordCount != 0 || s.ReadingTimeSec != 0 {
		t.Fatalf("unexpected counts for empty text: %+v", s)
	}
	if s.Quality != 0 {
		t.Fatalf("empty text quality = %v", s.Quality)
	}
}
