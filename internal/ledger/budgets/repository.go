package budgets

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed budget storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert installs or replaces the budget for (period, account).
func (r *Repository) Upsert(ctx context.Context, line BudgetLine) (BudgetLine, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO budget_lines (tenant_id, period_id, account_id, amount, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
ON CONFLICT (tenant_id, period_id, account_id)
DO UPDATE SET amount = EXCLUDED.amount, notes = EXCLUDED.notes, updated_at = NOW()
RETURNING id, created_at, updated_at`,
		line.TenantID, line.PeriodID, line.AccountID, line.Amount.String(), line.Notes)
	if err := row.Scan(&line.ID, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return BudgetLine{}, err
	}
	return line, nil
}

// ListForPeriod returns the period's budget lines ordered by account.
func (r *Repository) ListForPeriod(ctx context.Context, tenant uuid.UUID, periodID int64) ([]BudgetLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, period_id, account_id, amount, notes, created_at, updated_at
FROM budget_lines WHERE tenant_id=$1 AND period_id=$2 ORDER BY account_id`, tenant, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BudgetLine
	for rows.Next() {
		var line BudgetLine
		var amount pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.TenantID, &line.PeriodID, &line.AccountID, &amount, &line.Notes, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		if amount.Valid {
			line.Amount = decimal.NewFromBigInt(amount.Int, amount.Exp)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// Delete removes one budget line.
func (r *Repository) Delete(ctx context.Context, tenant uuid.UUID, periodID, accountID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM budget_lines WHERE tenant_id=$1 AND period_id=$2 AND account_id=$3`, tenant, periodID, accountID)
	return err
}
