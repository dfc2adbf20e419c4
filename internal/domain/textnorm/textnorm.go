// Package textnorm provides the pure string normalization used by query
// expansion and fuzzy name matching. Deck names are Portuguese, so diacritic
// stripping matters: "Cubatão" and "cubatao" must compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks: "água" -> "agua".
func StripDiacritics(s string) string {
	// The transform chain is stateful, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// StripPunctuation replaces every rune that is not a letter, digit, or space
// with a space. Word boundaries are preserved: "Angra-1" -> "Angra 1".
func StripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// CollapseWhitespace trims and squeezes runs of whitespace to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize applies the full canonical form: case fold, diacritic strip,
// punctuation strip, whitespace collapse. Both sides of every fuzzy
// comparison go through this first.
func Normalize(s string) string {
	return CollapseWhitespace(StripPunctuation(StripDiacritics(strings.ToLower(s))))
}

// Tokens splits a normalized form of s into words.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// ContainsWords reports whether needle occurs inside haystack as a whole-word
// sequence. Both arguments are compared in normalized form, so
// ContainsWords("usina de santa clara", "Santa Clara") is true while
// ContainsWords("santa clara", "anta") is false: bare substring containment
// without a word boundary earns nothing.
func ContainsWords(haystack, needle string) bool {
	hw := Tokens(haystack)
	nw := Tokens(needle)
	if len(nw) == 0 || len(nw) > len(hw) {
		return false
	}
	for i := 0; i+len(nw) <= len(hw); i++ {
		match := true
		for j := range nw {
			if hw[i+j] != nw[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
