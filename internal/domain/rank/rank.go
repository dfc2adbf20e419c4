// Package rank provides batched cosine-similarity ranking over
// pre-normalized vectors.
package rank

import (
	"math"
	"sort"
)

// Scored pairs a candidate's input index with its similarity score.
type Scored struct {
	Index int
	Score float64
}

// Normalize returns the unit-length (L2 norm = 1) copy of v, or nil for a
// zero vector. Storing unit vectors makes cosine similarity a plain dot
// product at query time.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / float32(norm)
	}
	return out
}

// Rank scores every candidate against the query vector and returns the
// candidates ordered by descending score. Both the query and every candidate
// must already be unit-normalized. Scores are clipped to [0,1] to absorb
// floating-point overshoot; ties keep candidate input order.
func Rank(query []float32, candidates [][]float32) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Score: clip01(dot(query, c))}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	return scored
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
