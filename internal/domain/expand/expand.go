// Package expand rewrites a raw query into a "bag of phrasings" that is
// embedded as a single string. Synonym rules widen recall before the
// embedding call; the output string is also the cache-key basis, so expansion
// must be deterministic.
package expand

import (
	"regexp"
	"strings"

	"github.com/hugomontan/newave-agent-sub004/internal/domain/textnorm"
)

// Rule rewrites queries matching Pattern into one variant per replacement
// phrase. Patterns are matched against the lower-cased query.
type Rule struct {
	Pattern      *regexp.Regexp
	Replacements []string
}

// Expand applies every matching rule, adds punctuation- and diacritic-stripped
// variants, deduplicates (case-insensitive, trimmed, first-seen order), and
// joins the surviving variants with spaces, original first.
func Expand(query string, rules []Rule) string {
	original := strings.TrimSpace(query)
	lower := strings.ToLower(original)

	variants := []string{original}

	for _, rule := range rules {
		if rule.Pattern == nil || !rule.Pattern.MatchString(lower) {
			continue
		}
		for _, repl := range rule.Replacements {
			variants = append(variants, rule.Pattern.ReplaceAllString(lower, repl))
		}
	}

	variants = append(variants,
		textnorm.CollapseWhitespace(textnorm.StripPunctuation(original)),
		textnorm.StripDiacritics(original),
	)

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}

	return strings.Join(out, " ")
}
