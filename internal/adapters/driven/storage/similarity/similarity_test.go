package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{0.3, 0.4, 0.5}
	b := []float32{3, 4, 5}
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
	assert.False(t, math.IsNaN(Cosine(a, b)))
}

func TestRank_OrdersByScoreThenInsertion(t *testing.T) {
	type row struct {
		name string
		vec  []float32
	}
	cands := []Candidate[row]{
		{Item: row{"late-tie", []float32{1, 0}}, Seq: 5},
		{Item: row{"low", []float32{0, 1}}, Seq: 1},
		{Item: row{"early-tie", []float32{2, 0}}, Seq: 2},
	}

	got := Rank([]float32{1, 0}, cands, func(r row) []float32 { return r.vec }, 10)

	require.Len(t, got, 3)
	assert.Equal(t, "early-tie", got[0].Item.name)
	assert.Equal(t, "late-tie", got[1].Item.name)
	assert.Equal(t, "low", got[2].Item.name)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestRank_TruncatesToTopK(t *testing.T) {
	cands := make([]Candidate[[]float32], 10)
	for i := range cands {
		cands[i] = Candidate[[]float32]{Item: []float32{float32(i), 1}, Seq: int64(i)}
	}

	got := Rank([]float32{1, 0}, cands, func(v []float32) []float32 { return v }, 3)

	assert.Len(t, got, 3)
	assert.Nil(t, Rank([]float32{1, 0}, cands, func(v []float32) []float32 { return v }, 0))
}
