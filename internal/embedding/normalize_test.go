package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eligo-vote/facematch/internal/domain"
)

func l2Norm(v domain.Embedding) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input domain.Embedding
	}{
		{name: "simple vector", input: domain.Embedding{3, 4}},
		{name: "negative components", input: domain.Embedding{-1, 2, -3, 4}},
		{name: "already unit norm", input: domain.Embedding{1, 0, 0}},
		{name: "tiny values", input: domain.Embedding{1e-8, 2e-8, 3e-8}},
		{name: "large values", input: domain.Embedding{1e8, -2e8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Len(t, got, len(tt.input))
			assert.InDelta(t, 1.0, l2Norm(got), 1e-9)
		})
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	got, err := Normalize(domain.Embedding{0, 0, 0})
	require.NoError(t, err)

	// The zero vector passes through unchanged, never NaN.
	assert.Equal(t, domain.Embedding{0, 0, 0}, got)
	for _, x := range got {
		assert.False(t, math.IsNaN(x))
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	input := domain.Embedding{3, 4}
	_, err := Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{3, 4}, input)
}

func TestNormalize_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input domain.Embedding
	}{
		{name: "empty vector", input: domain.Embedding{}},
		{name: "nil vector", input: nil},
		{name: "NaN component", input: domain.Embedding{1, math.NaN(), 3}},
		{name: "positive infinity", input: domain.Embedding{math.Inf(1), 0}},
		{name: "negative infinity", input: domain.Embedding{0, math.Inf(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)
		})
	}
}
