package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eligo-vote/facematch/internal/domain"
	"github.com/eligo-vote/facematch/internal/embedding"
	"github.com/eligo-vote/facematch/internal/matcher"
)

type EnrollmentRepositoryInterface interface {
	GetEmbeddingSet(ctx context.Context, identityID int64) (domain.EmbeddingSet, error)
	GetAllEmbeddingSets(ctx context.Context) ([]domain.IdentityEmbeddings, error)
	ReplaceEmbeddingSet(ctx context.Context, identityID int64, set domain.EmbeddingSet) error
}

type MatchAuditRepositoryInterface interface {
	Create(ctx context.Context, audit *domain.MatchAudit) error
}

// MatchService wires the decision engine to the enrollment store and the
// audit log. It is the transport-agnostic face of the matching core:
// handlers and batch jobs call it, never the engine directly.
type MatchService struct {
	enrollmentRepo EnrollmentRepositoryInterface
	auditRepo      MatchAuditRepositoryInterface
	engine         *matcher.Engine
	threshold      float64
}

func NewMatchService(
	enrollmentRepo EnrollmentRepositoryInterface,
	auditRepo MatchAuditRepositoryInterface,
	engine *matcher.Engine,
) *MatchService {
	return &MatchService{
		enrollmentRepo: enrollmentRepo,
		auditRepo:      auditRepo,
		engine:         engine,
		threshold:      engine.Threshold(),
	}
}

func (s *MatchService) WithThreshold(threshold float64) *MatchService {
	s.threshold = threshold
	return s
}

// resolveThreshold applies a per-request override, falling back to the
// configured default. Overrides outside [-1, 1] are rejected.
func (s *MatchService) resolveThreshold(override *float64) (float64, error) {
	if override == nil {
		return s.threshold, nil
	}
	if *override < -1 || *override > 1 {
		return 0, domain.ErrInvalidThreshold
	}
	return *override, nil
}

// Verify runs 1:1 verification of query against the identity's enrolled
// templates. An unenrolled identity is a clean non-match, not an error.
func (s *MatchService) Verify(ctx context.Context, identityID int64, query domain.Embedding, override *float64) (*domain.MatchResult, error) {
	start := time.Now()

	threshold, err := s.resolveThreshold(override)
	if err != nil {
		return nil, err
	}

	set, err := s.enrollmentRepo.GetEmbeddingSet(ctx, identityID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Verify(query, set, threshold)
	if err != nil {
		return nil, fmt.Errorf("verify identity %d: %w", identityID, err)
	}

	s.recordAudit(ctx, domain.ModeVerify, &identityID, result, threshold, start)

	return &result, nil
}

// Identify runs 1:N identification of query across all enrolled
// identities.
func (s *MatchService) Identify(ctx context.Context, query domain.Embedding, override *float64) (*domain.MatchResult, error) {
	start := time.Now()

	threshold, err := s.resolveThreshold(override)
	if err != nil {
		return nil, err
	}

	corpus, err := s.enrollmentRepo.GetAllEmbeddingSets(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Identify(query, corpus, threshold)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	s.recordAudit(ctx, domain.ModeIdentify, result.IdentityID, result, threshold, start)

	return &result, nil
}

// Enroll validates and stores a new enrollment set for an identity,
// replacing anything previously enrolled. Embeddings are stored as
// received; consumers normalize defensively when they score.
func (s *MatchService) Enroll(ctx context.Context, identityID int64, set domain.EmbeddingSet) error {
	if len(set) == 0 {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("embedding set is empty"))
	}
	for i, e := range set {
		if err := embedding.Validate(e); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		if len(e) != domain.EmbeddingDim {
			return domain.ErrDimensionMismatch.WithError(
				fmt.Errorf("sample %d has %d dimensions, want %d", i, len(e), domain.EmbeddingDim))
		}
	}

	if err := s.enrollmentRepo.ReplaceEmbeddingSet(ctx, identityID, set); err != nil {
		return fmt.Errorf("enroll identity %d: %w", identityID, err)
	}

	return nil
}

// recordAudit logs the decision best-effort. The decision was already made
// successfully; an audit write failure is intentionally not surfaced.
func (s *MatchService) recordAudit(ctx context.Context, mode domain.MatchMode, identityID *int64, result domain.MatchResult, threshold float64, start time.Time) {
	_ = s.auditRepo.Create(ctx, &domain.MatchAudit{
		IdentityID: identityID,
		Mode:       mode,
		Matched:    result.Matched,
		Score:      result.Score,
		Threshold:  threshold,
		LatencyMs:  time.Since(start).Milliseconds(),
	})
}
