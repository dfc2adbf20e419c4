package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cubatão", "cubatao"},
		{"  Angra-1 ", "angra 1"},
		{"CVU da usina?", "cvu da usina"},
		{"Água Vermelha", "agua vermelha"},
		{"GNA   II", "gna ii"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripDiacritics(t *testing.T) {
	if got := StripDiacritics("térmica à óleo"); got != "termica a oleo" {
		t.Errorf("StripDiacritics = %q", got)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("CVU da usina Santa Clara!")
	want := []string{"cvu", "da", "usina", "santa", "clara"}
	if len(got) != len(want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContainsWords(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"usina de santa clara", "Santa Clara", true},
		{"usina de santa clara", "santa", true},
		// "anta" is a substring of "santa" but not a whole word.
		{"usina de santa clara", "anta", false},
		{"cvu de gna dois", "GNA Dois", true},
		{"angra 1", "angra 1", true},
		{"angra", "angra 1", false},
		{"", "x", false},
		{"x", "", false},
	}
	for _, tt := range tests {
		if got := ContainsWords(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("ContainsWords(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}
