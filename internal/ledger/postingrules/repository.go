package postingrules

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// MappingResolver resolves a rule key to a tenant's ledger account.
type MappingResolver interface {
	Resolve(ctx context.Context, tenant uuid.UUID, docType, key string) (int64, error)
}

// Repository provides PostgreSQL backed mapping storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Resolve looks up the account mapped to (docType, key) for the tenant.
func (r *Repository) Resolve(ctx context.Context, tenant uuid.UUID, docType, key string) (int64, error) {
	if docType == "" || key == "" {
		return 0, errors.New("ledger: mapping doc type and key required")
	}
	var accountID int64
	err := r.pool.QueryRow(ctx, `SELECT account_id FROM account_mappings WHERE tenant_id=$1 AND doc_type=$2 AND key=$3`,
		tenant, strings.ToUpper(docType), strings.ToUpper(key)).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrMappingNotFound
		}
		return 0, err
	}
	return accountID, nil
}

// Upsert installs or replaces a mapping.
func (r *Repository) Upsert(ctx context.Context, m AccountMapping) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO account_mappings (tenant_id, doc_type, key, account_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW())
ON CONFLICT (tenant_id, doc_type, key) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()`,
		m.TenantID, strings.ToUpper(m.DocType), strings.ToUpper(m.Key), m.AccountID)
	return err
}

// List returns the tenant's mappings for a document type.
func (r *Repository) List(ctx context.Context, tenant uuid.UUID, docType string) ([]AccountMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, doc_type, key, account_id, created_at, updated_at
FROM account_mappings WHERE tenant_id=$1 AND doc_type=$2 ORDER BY key`, tenant, strings.ToUpper(docType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.TenantID, &m.DocType, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetDueDate stamps the source link with the document's due date so the aging
// report can bucket it later.
func (r *Repository) SetDueDate(ctx context.Context, tenant uuid.UUID, sourceID uuid.UUID, dueDate time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE source_links SET due_date=$3 WHERE tenant_id=$1 AND source_id=$2`, tenant, sourceID, dueDate)
	return err
}
