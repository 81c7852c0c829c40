// Package matcher implements the face-match decision engine: 1:1
// verification of a query embedding against one identity's enrolled
// templates, and 1:N identification across the whole corpus.
package matcher

import (
	"math"
	"sync"

	"github.com/eligo-vote/facematch/internal/domain"
	"github.com/eligo-vote/facematch/internal/embedding"
)

// DefaultThreshold is the recommended production operating point. It is a
// starting value only; deployments re-derive it with the calibration
// harness and override it through configuration.
const DefaultThreshold = 0.85

// Engine makes match decisions. It is caller-owned and safe for concurrent
// use: it holds no mutable state beyond a once-only readiness guard, and
// every decision operates on independently-read, immutable enrollment data.
type Engine struct {
	threshold float64
	ready     func() error
}

// New creates an engine with the given default threshold. The threshold is
// validated lazily on first use via an idempotent once-only guard, so a
// misconfigured engine fails the same way no matter how many requests race
// to use it first.
func New(threshold float64) *Engine {
	e := &Engine{threshold: threshold}
	e.ready = sync.OnceValue(func() error {
		if threshold < -1 || threshold > 1 {
			return domain.ErrInvalidThreshold
		}
		return nil
	})
	return e
}

// Threshold returns the engine's configured default threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Verify runs 1:1 verification of query against one identity's enrollment
// set. The score is the maximum cosine similarity over all templates in the
// set, never an average. A malformed query is rejected before anything
// else. An empty set is not a fault: it means nothing is enrolled yet, and
// yields a clean non-match.
func (e *Engine) Verify(query domain.Embedding, set domain.EmbeddingSet, threshold float64) (domain.MatchResult, error) {
	if err := e.ready(); err != nil {
		return domain.MatchResult{}, err
	}

	queryNorm, err := embedding.Normalize(query)
	if err != nil {
		return domain.MatchResult{}, err
	}

	if len(set) == 0 {
		return domain.MatchResult{Matched: false, Score: 0, BestIndex: -1}, nil
	}

	score, bestIdx, err := maxSimilarity(queryNorm, set)
	if err != nil {
		return domain.MatchResult{}, err
	}

	return domain.MatchResult{
		Matched:   score >= threshold,
		Score:     score,
		BestIndex: bestIdx,
	}, nil
}

// Identify runs 1:N identification of query across the corpus and returns
// the identity with the globally highest score. Below-threshold results
// carry the best score but no identity. Equal top scores are broken
// deterministically in favor of the lowest identity id, so repeated runs
// over the same corpus are reproducible and auditable regardless of
// iteration order.
func (e *Engine) Identify(query domain.Embedding, corpus []domain.IdentityEmbeddings, threshold float64) (domain.MatchResult, error) {
	if err := e.ready(); err != nil {
		return domain.MatchResult{}, err
	}

	queryNorm, err := embedding.Normalize(query)
	if err != nil {
		return domain.MatchResult{}, err
	}

	bestScore := math.Inf(-1)
	bestIdx := -1
	var bestID int64
	found := false

	for _, entry := range corpus {
		if len(entry.Set) == 0 {
			continue
		}

		score, idx, err := maxSimilarity(queryNorm, entry.Set)
		if err != nil {
			return domain.MatchResult{}, err
		}

		better := score > bestScore ||
			(score == bestScore && found && entry.IdentityID < bestID)
		if !found || better {
			bestScore = score
			bestIdx = idx
			bestID = entry.IdentityID
			found = true
		}
	}

	if !found {
		return domain.MatchResult{Matched: false, Score: 0, BestIndex: -1}, nil
	}

	result := domain.MatchResult{
		Matched:   bestScore >= threshold,
		Score:     bestScore,
		BestIndex: bestIdx,
	}
	if result.Matched {
		result.IdentityID = &bestID
	}

	return result, nil
}

// maxSimilarity scores a normalized query against every template in a set
// and returns the highest score with its template index. Stored templates
// are normalized defensively; they are not guaranteed unit norm as written.
func maxSimilarity(queryNorm domain.Embedding, set domain.EmbeddingSet) (float64, int, error) {
	best := math.Inf(-1)
	bestIdx := -1

	for i, template := range set {
		templateNorm, err := embedding.Normalize(template)
		if err != nil {
			return 0, -1, err
		}

		score, err := embedding.Cosine(queryNorm, templateNorm)
		if err != nil {
			return 0, -1, err
		}

		if score > best {
			best = score
			bestIdx = i
		}
	}

	return best, bestIdx, nil
}
