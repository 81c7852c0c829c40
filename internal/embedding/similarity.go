package embedding

import (
	"fmt"
	"math"

	"github.com/eligo-vote/facematch/internal/domain"
)

// Cosine computes the cosine similarity between two embedding vectors,
// clamped to [-1, 1] to absorb floating-point overshoot. Callers normally
// pass pre-normalized vectors, but the full formula is computed regardless
// so the result stays correct for non-unit input.
//
// Vectors of unequal length are rejected with ErrDimensionMismatch. A
// silent zero score here would make data corruption indistinguishable from
// a legitimate non-match, which is not acceptable for an authentication
// gate.
func Cosine(a, b domain.Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("got %d and %d dimensions", len(a), len(b)))
	}
	if len(a) == 0 {
		return 0, domain.ErrInvalidEmbedding.WithError(fmt.Errorf("empty vector"))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return clamp(dot/(math.Sqrt(normA)*math.Sqrt(normB)), -1, 1), nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
