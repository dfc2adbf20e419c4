// Package match implements generic fuzzy name resolution: exact match,
// word-boundary containment, and edit-similarity scoring over normalized
// strings.
package match

import (
	"github.com/hugomontan/newave-agent-sub004/internal/domain/textnorm"
)

// containmentFloor is the minimum score awarded when the shorter string
// occurs as a whole-word sequence inside the longer one. Short plant names
// embedded in a long query would otherwise be punished by raw edit distance.
const containmentFloor = 0.7

// Match is the best candidate found by Resolve.
type Match struct {
	Name  string
	Score float64
}

// Resolve finds the candidate most similar to query. Candidates are scored
// in input order: exact normalized equality scores 1.0, whole-word
// containment scores at least containmentFloor, everything else scores the
// edit-similarity ratio. The best candidate is returned only when its score
// reaches threshold; on ties the first-seen candidate wins.
func Resolve(query string, candidates []string, threshold float64) (Match, bool) {
	qNorm := textnorm.Normalize(query)
	if qNorm == "" {
		return Match{}, false
	}

	best := Match{Score: -1}
	for _, cand := range candidates {
		cNorm := textnorm.Normalize(cand)
		if cNorm == "" {
			continue
		}
		score := score(qNorm, cNorm)
		if score > best.Score {
			best = Match{Name: cand, Score: score}
		}
	}

	if best.Score < threshold {
		return Match{}, false
	}
	return best, true
}

// score compares two already-normalized strings.
func score(qNorm, cNorm string) float64 {
	if qNorm == cNorm {
		return 1.0
	}

	sim := Similarity(qNorm, cNorm)

	shorter, longer := qNorm, cNorm
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if textnorm.ContainsWords(longer, shorter) {
		if sim < containmentFloor {
			return containmentFloor
		}
		return sim
	}

	return sim
}

// Similarity is a normalized edit-similarity ratio in [0,1]:
// 2*LCS(a,b) / (len(a)+len(b)) over runes. 1.0 means identical, 0.0 means
// no common subsequence.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	return 2.0 * float64(lcs(ra, rb)) / float64(len(ra)+len(rb))
}

// lcs computes the longest common subsequence length with a rolling row.
func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
