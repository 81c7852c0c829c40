package repository

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/eligo-vote/facematch/internal/domain"
)

// EnrollmentRepository stores enrollment sets as one pgvector row per
// template, ordered by sample index within an identity.
type EnrollmentRepository struct {
	pool PgxPool
}

func NewEnrollmentRepository(pool PgxPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetEmbeddingSet returns an identity's enrollment set in sample order. An
// identity with no rows yields an empty set and no error: "nothing
// enrolled yet" is a valid state, not a fault.
func (r *EnrollmentRepository) GetEmbeddingSet(ctx context.Context, identityID int64) (domain.EmbeddingSet, error) {
	query := `
		SELECT embedding
		FROM enrollment_samples
		WHERE identity_id = $1
		ORDER BY sample_idx
	`

	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, storageErr("get embedding set", err)
	}
	defer rows.Close()

	var set domain.EmbeddingSet
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, storageErr("scan embedding", err)
		}
		set = append(set, toEmbedding(vec))
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read embedding set", err)
	}

	return set, nil
}

// GetAllEmbeddingSets returns the full corpus grouped by identity, ordered
// by identity id then sample index.
func (r *EnrollmentRepository) GetAllEmbeddingSets(ctx context.Context) ([]domain.IdentityEmbeddings, error) {
	query := `
		SELECT identity_id, embedding
		FROM enrollment_samples
		ORDER BY identity_id, sample_idx
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storageErr("get all embedding sets", err)
	}
	defer rows.Close()

	var corpus []domain.IdentityEmbeddings
	for rows.Next() {
		var identityID int64
		var vec pgvector.Vector
		if err := rows.Scan(&identityID, &vec); err != nil {
			return nil, storageErr("scan embedding row", err)
		}

		if len(corpus) == 0 || corpus[len(corpus)-1].IdentityID != identityID {
			corpus = append(corpus, domain.IdentityEmbeddings{IdentityID: identityID})
		}
		last := &corpus[len(corpus)-1]
		last.Set = append(last.Set, toEmbedding(vec))
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read embedding sets", err)
	}

	return corpus, nil
}

// ReplaceEmbeddingSet atomically supersedes an identity's enrollment with a
// new set. Samples are immutable once written; re-enrollment replaces the
// whole set rather than patching elements.
func (r *EnrollmentRepository) ReplaceEmbeddingSet(ctx context.Context, identityID int64, set domain.EmbeddingSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin replace", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM enrollment_samples WHERE identity_id = $1`,
		identityID,
	); err != nil {
		return storageErr("delete previous set", err)
	}

	insert := `
		INSERT INTO enrollment_samples (identity_id, sample_idx, embedding, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	for i, e := range set {
		if _, err := tx.Exec(ctx, insert, identityID, i, toVector(e)); err != nil {
			return storageErr("insert sample", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit replace", err)
	}

	return nil
}

// CountIdentities returns how many identities currently have at least one
// enrolled sample.
func (r *EnrollmentRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT identity_id) FROM enrollment_samples`,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("count identities", err)
	}
	return count, nil
}

func toVector(e domain.Embedding) pgvector.Vector {
	floats := make([]float32, len(e))
	for i, v := range e {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

func toEmbedding(vec pgvector.Vector) domain.Embedding {
	slice := vec.Slice()
	e := make(domain.Embedding, len(slice))
	for i, v := range slice {
		e[i] = float64(v)
	}
	return e
}
