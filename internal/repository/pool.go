package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eligo-vote/facematch/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories use. pgxmock's
// pool interface satisfies it, which is what the repository tests run
// against.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// storageErr wraps an infrastructure failure so callers see a single
// storage-unavailable condition instead of driver internals. Retrying is
// the caller's decision, never done here.
func storageErr(op string, err error) error {
	return domain.ErrStorageUnavailable.WithError(fmt.Errorf("%s: %w", op, err))
}
