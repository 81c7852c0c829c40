package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eligo-vote/facematch/internal/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    domain.Embedding
		b    domain.Embedding
		want float64
	}{
		{
			name: "identical vectors",
			a:    domain.Embedding{1, 2, 3},
			b:    domain.Embedding{1, 2, 3},
			want: 1.0,
		},
		{
			name: "opposite vectors",
			a:    domain.Embedding{1, 2, 3},
			b:    domain.Embedding{-1, -2, -3},
			want: -1.0,
		},
		{
			name: "orthogonal vectors",
			a:    domain.Embedding{1, 0, 0},
			b:    domain.Embedding{0, 1, 0},
			want: 0.0,
		},
		{
			name: "scaled copy still identical",
			a:    domain.Embedding{1, 2, 3},
			b:    domain.Embedding{10, 20, 30},
			want: 1.0,
		},
		{
			name: "zero operand scores zero",
			a:    domain.Embedding{0, 0, 0},
			b:    domain.Embedding{1, 2, 3},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	a := domain.Embedding{0.3, -0.7, 0.5, 0.1}
	b := domain.Embedding{-0.2, 0.9, 0.4, -0.6}

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestCosine_ClampedToUnitRange(t *testing.T) {
	// Nearly parallel vectors can overshoot 1.0 in floating point; the
	// result must stay inside [-1, 1].
	a := domain.Embedding{0.1000000001, 0.2, 0.3}
	b := domain.Embedding{0.1, 0.2, 0.3}

	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, -1.0)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	tests := []struct {
		name string
		a    domain.Embedding
		b    domain.Embedding
	}{
		{name: "shorter second", a: domain.Embedding{1, 2, 3}, b: domain.Embedding{1, 2}},
		{name: "shorter first", a: domain.Embedding{1}, b: domain.Embedding{1, 2}},
		{name: "one empty", a: domain.Embedding{}, b: domain.Embedding{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Always an error, never a silent zero score.
			_, err := Cosine(tt.a, tt.b)
			assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		})
	}
}

func TestCosine_BothEmpty(t *testing.T) {
	_, err := Cosine(domain.Embedding{}, domain.Embedding{})
	assert.ErrorIs(t, err, domain.ErrInvalidEmbedding)
}
