// Package similarity ranks stored vectors against a query by cosine similarity.
// It is shared by the stores that search in process (memory and SQLite).
package similarity

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b, computed in float64.
// Vectors of different length, or with zero magnitude, score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Candidate is a row considered for ranking.
type Candidate[T any] struct {
	// Item is the stored row.
	Item T

	// Seq is the insertion sequence; lower was stored earlier.
	Seq int64

	// Score is filled in by Rank.
	Score float64
}

// Rank scores every candidate against query and returns the best topK,
// ordered by score descending and then by insertion order.
func Rank[T any](query []float32, candidates []Candidate[T], vector func(T) []float32, topK int) []Candidate[T] {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}
	for i := range candidates {
		candidates[i].Score = Cosine(query, vector(candidates[i].Item))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}
