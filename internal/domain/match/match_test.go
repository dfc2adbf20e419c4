package match

import (
	"math"
	"testing"
)

func TestResolve_ExactMatch(t *testing.T) {
	m, ok := Resolve("Angra 1", []string{"Angra 1", "Angra 2", "Cubatão"}, 0.5)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Name != "Angra 1" {
		t.Errorf("expected Angra 1, got %q", m.Name)
	}
	if m.Score != 1.0 {
		t.Errorf("exact match must score 1.0, got %f", m.Score)
	}
}

func TestResolve_ExactMatchIgnoresCaseAndDiacritics(t *testing.T) {
	m, ok := Resolve("cubatao", []string{"Angra 1", "Cubatão"}, 0.5)
	if !ok || m.Name != "Cubatão" {
		t.Fatalf("expected Cubatão, got %+v ok=%v", m, ok)
	}
	if m.Score != 1.0 {
		t.Errorf("normalized-equal strings must score 1.0, got %f", m.Score)
	}
}

func TestResolve_ContainmentBeatsSubstring(t *testing.T) {
	// "anta" is a raw substring of "santa clara" but not a whole word, so it
	// earns no containment bonus and must lose to the word-boundary match.
	m, ok := Resolve("usina de santa clara", []string{"Anta", "Santa Clara"}, 0.5)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Name != "Santa Clara" {
		t.Errorf("expected Santa Clara, got %q", m.Name)
	}
	if m.Score < 0.7 {
		t.Errorf("containment match must score at least 0.7, got %f", m.Score)
	}
}

func TestResolve_BelowThreshold(t *testing.T) {
	if m, ok := Resolve("xingó", []string{"Angra 1", "Cubatão"}, 0.6); ok {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestResolve_TieFirstSeenWins(t *testing.T) {
	// Both candidates normalize to the same string; the first must win.
	m, ok := Resolve("angra 1", []string{"ANGRA 1", "Angra-1"}, 0.5)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Name != "ANGRA 1" {
		t.Errorf("tie must keep first-seen candidate, got %q", m.Name)
	}
}

func TestResolve_EmptyInputs(t *testing.T) {
	if _, ok := Resolve("", []string{"Angra 1"}, 0.1); ok {
		t.Error("empty query must not match")
	}
	if _, ok := Resolve("angra", nil, 0.1); ok {
		t.Error("empty candidate list must not match")
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("angra", "angra"); s != 1.0 {
		t.Errorf("identical strings: got %f", s)
	}
	if s := Similarity("abc", "xyz"); s != 0.0 {
		t.Errorf("disjoint strings: got %f", s)
	}
	// LCS("angra 1", "angra 2") = 6 shared runes of 7+7.
	want := 2.0 * 6.0 / 14.0
	if s := Similarity("angra 1", "angra 2"); math.Abs(s-want) > 1e-9 {
		t.Errorf("Similarity(angra 1, angra 2) = %f, want %f", s, want)
	}
	if s := Similarity("", ""); s != 1.0 {
		t.Errorf("two empty strings: got %f", s)
	}
	if s := Similarity("a", ""); s != 0.0 {
		t.Errorf("one empty string: got %f", s)
	}
}
