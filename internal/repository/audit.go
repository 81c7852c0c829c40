package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/eligo-vote/facematch/internal/domain"
)

// MatchAuditRepository records every verify/identify decision for later
// review. Writes are best-effort at the call site; a failed audit insert
// never overturns a decision that was already made.
type MatchAuditRepository struct {
	pool PgxPool
}

func NewMatchAuditRepository(pool PgxPool) *MatchAuditRepository {
	return &MatchAuditRepository{pool: pool}
}

func (r *MatchAuditRepository) Create(ctx context.Context, audit *domain.MatchAudit) error {
	query := `
		INSERT INTO match_audits (id, identity_id, mode, matched, score, threshold, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		audit.ID,
		audit.IdentityID,
		audit.Mode,
		audit.Matched,
		audit.Score,
		audit.Threshold,
		audit.LatencyMs,
	).Scan(&audit.CreatedAt)

	if err != nil {
		return storageErr("create match audit", err)
	}

	return nil
}
