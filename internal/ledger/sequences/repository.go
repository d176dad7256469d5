package sequences

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository allocates document numbers from the doc_sequences table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Allocate issues the next number inside the caller's transaction. The single
// UPDATE serializes concurrent callers on the counter row, which is the one
// place a race would produce a visible duplicate financial document number.
func Allocate(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, docType string) (string, error) {
	number, err := allocateOnce(ctx, tx, tenant, docType)
	if err == nil {
		return number, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	// Lazily seed the counter row, then retry. ON CONFLICT keeps a
	// concurrent seeder from failing the transaction.
	if _, err := tx.Exec(ctx, `INSERT INTO doc_sequences (tenant_id, doc_type, prefix, next_value, padding)
VALUES ($1,$2,$3,1,6) ON CONFLICT (tenant_id, doc_type) DO NOTHING`, tenant, docType, DefaultPrefix(docType)); err != nil {
		return "", err
	}
	return allocateOnce(ctx, tx, tenant, docType)
}

func allocateOnce(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, docType string) (string, error) {
	var prefix string
	var issued int64
	var padding int
	err := tx.QueryRow(ctx, `UPDATE doc_sequences SET next_value = next_value + 1, updated_at = NOW()
WHERE tenant_id=$1 AND doc_type=$2 RETURNING prefix, next_value - 1, padding`, tenant, docType).
		Scan(&prefix, &issued, &padding)
	if err != nil {
		return "", err
	}
	return Format(prefix, issued, padding), nil
}

// Next issues a number in its own transaction.
func (r *Repository) Next(ctx context.Context, tenant uuid.UUID, docType string) (string, error) {
	var number string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		number, err = Allocate(ctx, tx, tenant, docType)
		return err
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// Seed provisions a counter with an explicit prefix and padding.
func (r *Repository) Seed(ctx context.Context, tenant uuid.UUID, docType, prefix string, padding int) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO doc_sequences (tenant_id, doc_type, prefix, next_value, padding)
VALUES ($1,$2,$3,1,$4)
ON CONFLICT (tenant_id, doc_type) DO UPDATE SET prefix = EXCLUDED.prefix, padding = EXCLUDED.padding, updated_at = NOW()`,
		tenant, docType, prefix, padding)
	return err
}
