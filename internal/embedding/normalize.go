// Package embedding implements the vector math the matching engine is built
// on: validation, L2 normalization and cosine similarity scoring.
package embedding

import (
	"fmt"
	"math"

	"github.com/eligo-vote/facematch/internal/domain"
)

// Validate checks that v is a usable embedding: non-empty and containing
// only finite values. Everything that consumes raw vectors goes through
// this before any arithmetic, so NaN/Inf never reaches a score.
func Validate(v domain.Embedding) error {
	if len(v) == 0 {
		return domain.ErrInvalidEmbedding.WithError(fmt.Errorf("empty vector"))
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return domain.ErrInvalidEmbedding.WithError(fmt.Errorf("non-finite value at index %d", i))
		}
	}
	return nil
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero vector is
// returned unchanged (the norm divisor falls back to 1) so the zero case
// can never produce NaN downstream.
func Normalize(v domain.Embedding) (domain.Embedding, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}

	var sumSquares float64
	for _, x := range v {
		sumSquares += x * x
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		norm = 1
	}

	normalized := make(domain.Embedding, len(v))
	for i, x := range v {
		normalized[i] = x / norm
	}

	return normalized, nil
}
