package periods

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the fiscal calendar.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

const periodColumns = `id, tenant_id, fiscal_year_id, number, start_date, end_date, status, closed_at, closed_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.TenantID, &p.FiscalYearID, &p.Number, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// InsertYear stores a fiscal year row.
func (r *Repository) InsertYear(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, label string, start, end time.Time) (FiscalYear, error) {
	var y FiscalYear
	err := tx.QueryRow(ctx, `INSERT INTO fiscal_years (tenant_id, label, start_date, end_date, is_active)
VALUES ($1,$2,$3,$4,true) RETURNING id, tenant_id, label, start_date, end_date, is_active, created_at, updated_at`,
		tenant, label, start, end).
		Scan(&y.ID, &y.TenantID, &y.Label, &y.StartDate, &y.EndDate, &y.IsActive, &y.CreatedAt, &y.UpdatedAt)
	return y, err
}

// YearRangeConflict reports whether an existing year overlaps the range.
func (r *Repository) YearRangeConflict(ctx context.Context, tenant uuid.UUID, start, end time.Time) (bool, error) {
	var conflict bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
  SELECT 1 FROM fiscal_years WHERE tenant_id=$1 AND start_date <= $3 AND end_date >= $2
)`, tenant, start, end).Scan(&conflict)
	return conflict, err
}

// InsertPeriod stores one period row inside the year.
func (r *Repository) InsertPeriod(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, yearID int64, number int, start, end time.Time) (Period, error) {
	row := tx.QueryRow(ctx, `INSERT INTO fiscal_periods (tenant_id, fiscal_year_id, number, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,'OPEN') RETURNING `+periodColumns, tenant, yearID, number, start, end)
	return scanPeriod(row)
}

// FindByDate returns the period covering the supplied date.
func (r *Repository) FindByDate(ctx context.Context, tenant uuid.UUID, date time.Time) (Period, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+periodColumns+`
FROM fiscal_periods WHERE tenant_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, tenant, date)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNoPeriodDefined
		}
		return Period{}, err
	}
	return period, nil
}

// LoadForUpdate fetches a period with a row lock for status transitions.
func (r *Repository) LoadForUpdate(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, id int64) (Period, error) {
	row := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenant, id)
	period, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNoPeriodDefined
		}
		return Period{}, err
	}
	return period, nil
}

// UpdateStatus transitions a period and stamps the closing actor.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, id int64, status PeriodStatus, actor int64, at time.Time) error {
	var closedAt any
	var closedBy any
	if status == PeriodStatusClosed {
		closedAt = at
		closedBy = actor
	}
	cmd, err := tx.Exec(ctx, `UPDATE fiscal_periods SET status=$3, closed_at=$4, closed_by=$5, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`,
		tenant, id, status, closedAt, closedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNoPeriodDefined
	}
	return nil
}

// ListByYear returns the year's periods in sequence order.
func (r *Repository) ListByYear(ctx context.Context, tenant uuid.UUID, yearID int64) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id=$1 AND fiscal_year_id=$2 ORDER BY number`, tenant, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListYears returns the tenant's fiscal years, newest first.
func (r *Repository) ListYears(ctx context.Context, tenant uuid.UUID) ([]FiscalYear, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, label, start_date, end_date, is_active, created_at, updated_at
FROM fiscal_years WHERE tenant_id=$1 ORDER BY start_date DESC`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FiscalYear
	for rows.Next() {
		var y FiscalYear
		if err := rows.Scan(&y.ID, &y.TenantID, &y.Label, &y.StartDate, &y.EndDate, &y.IsActive, &y.CreatedAt, &y.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
