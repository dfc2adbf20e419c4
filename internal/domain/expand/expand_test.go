package expand

import (
	"regexp"
	"strings"
	"testing"
)

func testRules() []Rule {
	return []Rule{
		{
			Pattern:      regexp.MustCompile(`\bcvu\b`),
			Replacements: []string{"custo variavel unitario"},
		},
		{
			Pattern:      regexp.MustCompile(`\bena\b`),
			Replacements: []string{"energia natural afluente", "afluencia"},
		},
	}
}

func TestExpand_OriginalFirst(t *testing.T) {
	got := Expand("qual o CVU da usina", testRules())
	if !strings.HasPrefix(got, "qual o CVU da usina") {
		t.Errorf("expected original variant first, got %q", got)
	}
	if !strings.Contains(got, "custo variavel unitario") {
		t.Errorf("expected synonym variant, got %q", got)
	}
}

func TestExpand_OneVariantPerReplacement(t *testing.T) {
	got := Expand("ena do sudeste", testRules())
	if !strings.Contains(got, "energia natural afluente do sudeste") {
		t.Errorf("missing first replacement variant: %q", got)
	}
	if !strings.Contains(got, "afluencia do sudeste") {
		t.Errorf("missing second replacement variant: %q", got)
	}
}

func TestExpand_NonMatchingRuleSkipped(t *testing.T) {
	got := Expand("carga do nordeste", testRules())
	if strings.Contains(got, "custo variavel") || strings.Contains(got, "afluencia") {
		t.Errorf("non-matching rules must not contribute variants: %q", got)
	}
}

func TestExpand_DiacriticAndPunctuationVariants(t *testing.T) {
	got := Expand("geração térmica?", nil)
	if !strings.Contains(got, "geracao termica") {
		t.Errorf("expected diacritic-stripped variant, got %q", got)
	}
}

func TestExpand_DedupCaseInsensitive(t *testing.T) {
	// The punctuation-stripped and diacritic-stripped variants of a plain
	// ASCII query are identical to the original and must be dropped.
	got := Expand("carga do sudeste", nil)
	if got != "carga do sudeste" {
		t.Errorf("expected duplicates collapsed, got %q", got)
	}
}

func TestExpand_Deterministic(t *testing.T) {
	rules := DefaultRules()
	a := Expand("CVU da usina de Cubatão", rules)
	b := Expand("CVU da usina de Cubatão", rules)
	if a != b {
		t.Errorf("expansion is not deterministic: %q vs %q", a, b)
	}
}
