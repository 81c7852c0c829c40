package repository

import (
	"context"

	"github.com/eligo-vote/facematch/internal/domain"
)

// EnrollmentRepositoryInterface defines operations for enrollment data access
type EnrollmentRepositoryInterface interface {
	GetEmbeddingSet(ctx context.Context, identityID int64) (domain.EmbeddingSet, error)
	GetAllEmbeddingSets(ctx context.Context) ([]domain.IdentityEmbeddings, error)
	ReplaceEmbeddingSet(ctx context.Context, identityID int64, set domain.EmbeddingSet) error
	CountIdentities(ctx context.Context) (int, error)
}

// MatchAuditRepositoryInterface defines operations for decision audit logging
type MatchAuditRepositoryInterface interface {
	Create(ctx context.Context, audit *domain.MatchAudit) error
}
