// Package evaluation implements the offline calibration harness: it builds
// genuine and impostor similarity-score populations from the enrollment
// corpus, measures FAR/FRR at an operating threshold, and sweeps a
// threshold grid to estimate the Equal Error Rate.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/eligo-vote/facematch/internal/domain"
	"github.com/eligo-vote/facematch/internal/embedding"
)

// maxImpostorRetries bounds the rejection-and-retry loop used to pick a
// different identity for an impostor sample. Exhausted samples are
// discarded rather than compared against the same identity: a self
// comparison would leak genuine scores into the impostor population and
// bias FAR downward.
const maxImpostorRetries = 10

// EnrollmentReader is the slice of the enrollment store the harness needs.
type EnrollmentReader interface {
	GetAllEmbeddingSets(ctx context.Context) ([]domain.IdentityEmbeddings, error)
}

// Config controls a calibration run. Unset values fall back to the
// defaults below.
type Config struct {
	// Threshold is the operating point FAR and FRR are reported at. Nil
	// falls back to the default; 0.0 is a legal operating point.
	Threshold *float64

	// ImpostorSamplesPerIdentity is how many cross-identity samples are
	// drawn for each enrolled identity.
	ImpostorSamplesPerIdentity int

	// GridStart, GridEnd and GridStep define the threshold grid swept for
	// the EER estimate.
	GridStart float64
	GridEnd   float64
	GridStep  float64

	// Seed makes a run reproducible. Zero seeds from the wall clock.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Threshold == nil {
		t := 0.85
		c.Threshold = &t
	}
	if c.ImpostorSamplesPerIdentity == 0 {
		c.ImpostorSamplesPerIdentity = 50
	}
	if c.GridStart == 0 && c.GridEnd == 0 {
		c.GridStart, c.GridEnd = 0.40, 0.80
	}
	if c.GridStep == 0 {
		c.GridStep = 0.01
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// EERPoint is the grid point where FAR and FRR come closest. It is a grid
// approximation of the equal-error crossing, not an exact root.
type EERPoint struct {
	Threshold float64 `json:"threshold"`
	FAR       float64 `json:"far"`
	FRR       float64 `json:"frr"`
}

// Report is the structured output of one calibration run.
type Report struct {
	UsersWithEmbeddings int       `json:"users_with_embeddings"`
	GenuinePairs        int       `json:"genuine_pairs"`
	ImpostorPairs       int       `json:"impostor_pairs"`
	DiscardedSamples    int       `json:"discarded_samples"`
	Threshold           float64   `json:"threshold"`
	FRR                 float64   `json:"frr"`
	FAR                 float64   `json:"far"`
	EER                 *EERPoint `json:"eer_estimate,omitempty"`
}

// Harness runs calibration batches over the full enrollment corpus. It is
// a long-running offline job; Run honors context cancellation between
// identity iterations, best-effort.
type Harness struct {
	store  EnrollmentReader
	logger *slog.Logger
	cfg    Config
	rng    *rand.Rand
}

func New(store EnrollmentReader, logger *slog.Logger, cfg Config) *Harness {
	cfg = cfg.withDefaults()
	return &Harness{
		store:  store,
		logger: logger,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Run executes one calibration batch and returns the report.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	corpus, err := h.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}

	if len(corpus) < 2 {
		return nil, domain.ErrInsufficientData.WithError(
			fmt.Errorf("%d identities with embeddings", len(corpus)))
	}

	h.logger.Info("calibration corpus loaded",
		slog.Int("identities", len(corpus)),
		slog.Int64("seed", h.cfg.Seed),
	)

	genuine, err := h.genuineScores(ctx, corpus)
	if err != nil {
		return nil, err
	}

	impostor, discarded, err := h.impostorScores(ctx, corpus)
	if err != nil {
		return nil, err
	}

	if discarded > 0 {
		h.logger.Warn("impostor samples discarded after retry cap",
			slog.Int("discarded", discarded),
			slog.Int("kept", len(impostor)),
		)
	}

	far, frr := ratesAt(*h.cfg.Threshold, genuine, impostor)

	report := &Report{
		UsersWithEmbeddings: len(corpus),
		GenuinePairs:        len(genuine),
		ImpostorPairs:       len(impostor),
		DiscardedSamples:    discarded,
		Threshold:           *h.cfg.Threshold,
		FRR:                 frr,
		FAR:                 far,
		EER:                 h.sweepEER(genuine, impostor),
	}

	h.logger.Info("calibration complete",
		slog.Int("genuine_pairs", report.GenuinePairs),
		slog.Int("impostor_pairs", report.ImpostorPairs),
		slog.Float64("far", report.FAR),
		slog.Float64("frr", report.FRR),
	)

	return report, nil
}

// loadCorpus reads every enrollment set, drops identities with nothing
// enrolled, and normalizes each embedding once up front.
func (h *Harness) loadCorpus(ctx context.Context) ([]domain.IdentityEmbeddings, error) {
	all, err := h.store.GetAllEmbeddingSets(ctx)
	if err != nil {
		return nil, err
	}

	corpus := make([]domain.IdentityEmbeddings, 0, len(all))
	for _, entry := range all {
		if len(entry.Set) == 0 {
			continue
		}

		normalized := make(domain.EmbeddingSet, len(entry.Set))
		for i, e := range entry.Set {
			norm, err := embedding.Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("identity %d embedding %d: %w", entry.IdentityID, i, err)
			}
			normalized[i] = norm
		}

		corpus = append(corpus, domain.IdentityEmbeddings{
			IdentityID: entry.IdentityID,
			Set:        normalized,
		})
	}

	return corpus, nil
}

// genuineScores pairs every template with every later template of the same
// identity. Identities with a single template contribute nothing.
func (h *Harness) genuineScores(ctx context.Context, corpus []domain.IdentityEmbeddings) ([]float64, error) {
	var scores []float64

	for _, entry := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		set := entry.Set
		for i := 0; i < len(set); i++ {
			for j := i + 1; j < len(set); j++ {
				score, err := embedding.Cosine(set[i], set[j])
				if err != nil {
					return nil, fmt.Errorf("identity %d genuine pair (%d,%d): %w", entry.IdentityID, i, j, err)
				}
				scores = append(scores, score)
			}
		}
	}

	return scores, nil
}

// impostorScores draws the configured number of cross-identity samples per
// identity. Picking the same identity is resolved by rejection and retry;
// a sample that exhausts its retries is discarded and counted.
func (h *Harness) impostorScores(ctx context.Context, corpus []domain.IdentityEmbeddings) ([]float64, int, error) {
	var scores []float64
	discarded := 0

	for i, entry := range corpus {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		for s := 0; s < h.cfg.ImpostorSamplesPerIdentity; s++ {
			other := -1
			for attempt := 0; attempt < maxImpostorRetries; attempt++ {
				candidate := h.rng.Intn(len(corpus))
				if candidate != i {
					other = candidate
					break
				}
			}
			if other == -1 {
				discarded++
				continue
			}

			mine := entry.Set[h.rng.Intn(len(entry.Set))]
			theirs := corpus[other].Set[h.rng.Intn(len(corpus[other].Set))]

			score, err := embedding.Cosine(mine, theirs)
			if err != nil {
				return nil, 0, fmt.Errorf("impostor pair %d/%d: %w",
					entry.IdentityID, corpus[other].IdentityID, err)
			}
			scores = append(scores, score)
		}
	}

	return scores, discarded, nil
}

// sweepEER walks the threshold grid and returns the point minimizing
// |FAR - FRR|, or nil when either score population is empty.
func (h *Harness) sweepEER(genuine, impostor []float64) *EERPoint {
	if len(genuine) == 0 || len(impostor) == 0 {
		return nil
	}

	var best *EERPoint
	bestGap := 0.0

	// Step in integer multiples to avoid drifting past GridEnd on float
	// accumulation.
	steps := int((h.cfg.GridEnd-h.cfg.GridStart)/h.cfg.GridStep + 0.5)
	for i := 0; i <= steps; i++ {
		t := h.cfg.GridStart + float64(i)*h.cfg.GridStep
		far, frr := ratesAt(t, genuine, impostor)

		gap := far - frr
		if gap < 0 {
			gap = -gap
		}

		if best == nil || gap < bestGap {
			best = &EERPoint{Threshold: t, FAR: far, FRR: frr}
			bestGap = gap
		}
	}

	return best
}

// ratesAt computes FAR and FRR at threshold t. FRR is the fraction of
// genuine scores below t; FAR is the fraction of impostor scores at or
// above it. An empty population yields a zero rate.
func ratesAt(t float64, genuine, impostor []float64) (far, frr float64) {
	if len(genuine) > 0 {
		rejected := 0
		for _, s := range genuine {
			if s < t {
				rejected++
			}
		}
		frr = float64(rejected) / float64(len(genuine))
	}

	if len(impostor) > 0 {
		accepted := 0
		for _, s := range impostor {
			if s >= t {
				accepted++
			}
		}
		far = float64(accepted) / float64(len(impostor))
	}

	return far, frr
}
