package reports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Repository aggregates posted journal activity for the report builders.
// Every query is tenant-scoped and tolerates zero rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityQuery = `SELECT a.id, a.code, a.name, a.type, a.normal_balance,
COALESCE(SUM(l.debit - l.credit) FILTER (WHERE e.entry_date < $2), 0) AS opening,
COALESCE(SUM(l.debit) FILTER (WHERE e.entry_date >= $2 AND e.entry_date <= $3), 0) AS debit,
COALESCE(SUM(l.credit) FILTER (WHERE e.entry_date >= $2 AND e.entry_date <= $3), 0) AS credit
FROM gl_accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.entry_id AND e.tenant_id = a.tenant_id AND e.is_posted AND e.entry_date <= $3
WHERE a.tenant_id = $1
GROUP BY a.id, a.code, a.name, a.type, a.normal_balance
ORDER BY a.code`

// AccountActivity returns per-account balances with the window's movement and
// the opening balance carried in from before the window.
func (r *Repository) AccountActivity(ctx context.Context, tenant uuid.UUID, from, to time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, activityQuery, tenant, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBalances(rows)
}

// AccountActivityAsOf returns cumulative per-account debit and credit totals
// through the as-of date.
func (r *Repository) AccountActivityAsOf(ctx context.Context, tenant uuid.UUID, asOf time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type, a.normal_balance,
0 AS opening,
COALESCE(SUM(l.debit), 0) AS debit,
COALESCE(SUM(l.credit), 0) AS credit
FROM gl_accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.entry_id AND e.tenant_id = a.tenant_id AND e.is_posted AND e.entry_date <= $2
WHERE a.tenant_id = $1
GROUP BY a.id, a.code, a.name, a.type, a.normal_balance
ORDER BY a.code`, tenant, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBalances(rows)
}

// AccountActivityForAccount returns one account's window balance.
func (r *Repository) AccountActivityForAccount(ctx context.Context, tenant uuid.UUID, accountID int64, from, to time.Time) (AccountBalance, error) {
	row := r.pool.QueryRow(ctx, `SELECT a.id, a.code, a.name, a.type, a.normal_balance,
COALESCE(SUM(l.debit - l.credit) FILTER (WHERE e.entry_date < $3), 0) AS opening,
COALESCE(SUM(l.debit) FILTER (WHERE e.entry_date >= $3 AND e.entry_date <= $4), 0) AS debit,
COALESCE(SUM(l.credit) FILTER (WHERE e.entry_date >= $3 AND e.entry_date <= $4), 0) AS credit
FROM gl_accounts a
LEFT JOIN journal_lines l ON l.account_id = a.id
LEFT JOIN journal_entries e ON e.id = l.entry_id AND e.tenant_id = a.tenant_id AND e.is_posted AND e.entry_date <= $4
WHERE a.tenant_id = $1 AND a.id = $2
GROUP BY a.id, a.code, a.name, a.type, a.normal_balance`, tenant, accountID, from, to)
	balance, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountBalance{}, shared.ErrAccountNotFound
		}
		return AccountBalance{}, err
	}
	return balance, nil
}

// LedgerLines returns an account's posted lines within the window, oldest
// first.
func (r *Repository) LedgerLines(ctx context.Context, tenant uuid.UUID, accountID int64, from, to time.Time) ([]LedgerLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.number, e.entry_date, e.memo, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id = $1 AND l.account_id = $2 AND e.is_posted AND e.entry_date >= $3 AND e.entry_date <= $4
ORDER BY e.entry_date, e.id, l.id`, tenant, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerLine
	for rows.Next() {
		var line LedgerLine
		var debit, credit pgtype.Numeric
		if err := rows.Scan(&line.EntryID, &line.Number, &line.EntryDate, &line.Memo, &debit, &credit); err != nil {
			return nil, err
		}
		line.Debit = numericToDecimal(debit)
		line.Credit = numericToDecimal(credit)
		out = append(out, line)
	}
	return out, rows.Err()
}

// OpenDocuments returns posted, unreversed entries of the source type through
// the as-of date, with the gross amount and any recorded due date.
func (r *Repository) OpenDocuments(ctx context.Context, tenant uuid.UUID, sourceType string, asOf time.Time) ([]OpenDocument, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.number, e.source_id, e.source_type, e.entry_date, sl.due_date,
COALESCE(SUM(l.debit), 0)
FROM journal_entries e
JOIN source_links sl ON sl.entry_id = e.id AND sl.tenant_id = e.tenant_id
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.tenant_id = $1 AND e.source_type = $2 AND e.is_posted AND e.reversed_by_id IS NULL AND e.entry_date <= $3
GROUP BY e.id, e.number, e.source_id, e.source_type, e.entry_date, sl.due_date
ORDER BY sl.due_date NULLS LAST, e.id`, tenant, sourceType, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OpenDocument
	for rows.Next() {
		var doc OpenDocument
		var amount pgtype.Numeric
		if err := rows.Scan(&doc.EntryID, &doc.Number, &doc.SourceID, &doc.SourceType, &doc.EntryDate, &doc.DueDate, &amount); err != nil {
			return nil, err
		}
		doc.Amount = numericToDecimal(amount)
		out = append(out, doc)
	}
	return out, rows.Err()
}

// BudgetAmounts returns the period's budget joined with account metadata.
func (r *Repository) BudgetAmounts(ctx context.Context, tenant uuid.UUID, periodID int64) ([]BudgetAmount, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.account_id, a.code, a.name, b.amount
FROM budget_lines b
JOIN gl_accounts a ON a.id = b.account_id AND a.tenant_id = b.tenant_id
WHERE b.tenant_id = $1 AND b.period_id = $2
ORDER BY a.code`, tenant, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BudgetAmount
	for rows.Next() {
		var budget BudgetAmount
		var amount pgtype.Numeric
		if err := rows.Scan(&budget.AccountID, &budget.Code, &budget.Name, &amount); err != nil {
			return nil, err
		}
		budget.Amount = numericToDecimal(amount)
		out = append(out, budget)
	}
	return out, rows.Err()
}

// PeriodWindow resolves a period's date range.
func (r *Repository) PeriodWindow(ctx context.Context, tenant uuid.UUID, periodID int64) (time.Time, time.Time, error) {
	var start, end time.Time
	err := r.pool.QueryRow(ctx, `SELECT start_date, end_date FROM fiscal_periods WHERE tenant_id=$1 AND id=$2`, tenant, periodID).
		Scan(&start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, time.Time{}, shared.ErrNoPeriodDefined
		}
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// MappedAccountIDs returns the set of accounts mapped to any of the keys,
// across all document types.
func (r *Repository) MappedAccountIDs(ctx context.Context, tenant uuid.UUID, keys []string) (map[int64]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT account_id FROM account_mappings WHERE tenant_id=$1 AND key = ANY($2)`, tenant, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func scanBalances(rows pgx.Rows) ([]AccountBalance, error) {
	var out []AccountBalance
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, balance)
	}
	return out, rows.Err()
}

func scanBalance(row pgx.Row) (AccountBalance, error) {
	var balance AccountBalance
	var accType, normal string
	var opening, debit, credit pgtype.Numeric
	if err := row.Scan(&balance.AccountID, &balance.Code, &balance.Name, &accType, &normal, &opening, &debit, &credit); err != nil {
		return AccountBalance{}, err
	}
	balance.Type = accounts.AccountType(accType)
	balance.NormalBalance = accounts.NormalBalance(normal)
	balance.Opening = numericToDecimal(opening)
	balance.Debit = numericToDecimal(debit)
	balance.Credit = numericToDecimal(credit)
	return balance, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
