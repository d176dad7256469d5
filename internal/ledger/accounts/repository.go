package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Insert(ctx context.Context, in CreateInput, normal NormalBalance) (Account, error)
	Get(ctx context.Context, tenant uuid.UUID, id int64) (Account, error)
	List(ctx context.Context, tenant uuid.UUID) ([]Account, error)
	ParentChain(ctx context.Context, tenant uuid.UUID, id int64) ([]int64, error)
	HasPostingsInOpenPeriods(ctx context.Context, tenant uuid.UUID, id int64) (bool, error)
	SetActive(ctx context.Context, tenant uuid.UUID, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, tenant_id, code, name, type, normal_balance, parent_id, is_active, is_locked, is_system, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.ParentID, &a.IsActive, &a.IsLocked, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Insert(ctx context.Context, in CreateInput, normal NormalBalance) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO gl_accounts (tenant_id, code, name, type, normal_balance, parent_id, is_active, is_locked, is_system)
VALUES ($1,$2,$3,$4,$5,$6,true,false,$7) RETURNING `+accountColumns,
		in.TenantID, in.Code, in.Name, in.Type, normal, in.ParentID, in.IsSystem)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) Get(ctx context.Context, tenant uuid.UUID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM gl_accounts WHERE tenant_id=$1 AND id=$2`, tenant, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) List(ctx context.Context, tenant uuid.UUID) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM gl_accounts WHERE tenant_id=$1 ORDER BY code`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ParentChain walks from the account up to the root and returns the visited
// ids in order. The recursive CTE is bounded so a corrupted cycle cannot spin.
func (r *repository) ParentChain(ctx context.Context, tenant uuid.UUID, id int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `WITH RECURSIVE chain AS (
  SELECT id, parent_id, 1 AS depth FROM gl_accounts WHERE tenant_id=$1 AND id=$2
  UNION ALL
  SELECT a.id, a.parent_id, c.depth + 1 FROM gl_accounts a
  JOIN chain c ON a.id = c.parent_id AND a.tenant_id = $1
  WHERE c.depth < 64
) SELECT id FROM chain`, tenant, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var aid int64
		if err := rows.Scan(&aid); err != nil {
			return nil, err
		}
		ids = append(ids, aid)
	}
	return ids, rows.Err()
}

func (r *repository) HasPostingsInOpenPeriods(ctx context.Context, tenant uuid.UUID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
  SELECT 1 FROM journal_lines l
  JOIN journal_entries e ON e.id = l.entry_id
  JOIN fiscal_periods p ON p.id = e.period_id
  JOIN fiscal_years y ON y.id = p.fiscal_year_id
  WHERE e.tenant_id = $1 AND l.account_id = $2 AND p.status = 'OPEN' AND y.is_active
)`, tenant, id).Scan(&exists)
	return exists, err
}

func (r *repository) SetActive(ctx context.Context, tenant uuid.UUID, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE gl_accounts SET is_active=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenant, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}
