package auditor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the integrity queries. Each check is a single read-only
// aggregate; anomalies are derived entirely in SQL so the scans stay cheap on
// large ledgers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UnbalancedEntries returns posted entries whose lines do not sum to zero.
func (r *Repository) UnbalancedEntries(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, SUM(l.debit) AS debits, SUM(l.credit) AS credits
FROM journal_entries e
JOIN journal_lines l ON l.entry_id = e.id
WHERE e.tenant_id = $1 AND e.is_posted
GROUP BY e.id
HAVING SUM(l.debit) <> SUM(l.credit)`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Anomaly
	for rows.Next() {
		var id int64
		var debits, credits pgtype.Numeric
		if err := rows.Scan(&id, &debits, &credits); err != nil {
			return nil, err
		}
		out = append(out, Anomaly{
			Kind:    KindUnbalancedEntry,
			EntryID: id,
			Detail:  fmt.Sprintf("debits %s != credits %s", numericString(debits), numericString(credits)),
		})
	}
	return out, rows.Err()
}

// OrphanLines returns lines whose entry row is missing.
func (r *Repository) OrphanLines(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.entry_id
FROM journal_lines l
LEFT JOIN journal_entries e ON e.id = l.entry_id
JOIN gl_accounts a ON a.id = l.account_id
WHERE a.tenant_id = $1 AND e.id IS NULL`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Anomaly
	for rows.Next() {
		var lineID, entryID int64
		if err := rows.Scan(&lineID, &entryID); err != nil {
			return nil, err
		}
		out = append(out, Anomaly{
			Kind:    KindOrphanLine,
			EntryID: entryID,
			Detail:  fmt.Sprintf("line %d references missing entry %d", lineID, entryID),
		})
	}
	return out, rows.Err()
}

// EmptyEntries returns posted entries without any lines.
func (r *Repository) EmptyEntries(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id FROM journal_entries e
LEFT JOIN journal_lines l ON l.entry_id = e.id
WHERE e.tenant_id = $1 AND e.is_posted AND l.id IS NULL`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Anomaly
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, Anomaly{Kind: KindEmptyEntry, EntryID: id, Detail: "posted entry has no lines"})
	}
	return out, rows.Err()
}

// PostedAfterClose returns entries created after their period was closed.
// A reopened period clears closed_at, so only still-closed periods match.
func (r *Repository) PostedAfterClose(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, p.id, p.closed_at, e.created_at
FROM journal_entries e
JOIN fiscal_periods p ON p.id = e.period_id
WHERE e.tenant_id = $1 AND p.status = 'CLOSED' AND p.closed_at IS NOT NULL AND e.created_at > p.closed_at`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Anomaly
	for rows.Next() {
		var entryID, periodID int64
		var closedAt, createdAt time.Time
		if err := rows.Scan(&entryID, &periodID, &closedAt, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, Anomaly{
			Kind:    KindPostedAfterClose,
			EntryID: entryID,
			Detail:  fmt.Sprintf("created %s after period %d closed %s", createdAt.Format(time.RFC3339), periodID, closedAt.Format(time.RFC3339)),
		})
	}
	return out, rows.Err()
}

// BrokenReversalLinks returns reversal pairs whose pointers do not
// reciprocate, plus self-referential links.
func (r *Repository) BrokenReversalLinks(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.reversed_entry_id
FROM journal_entries e
LEFT JOIN journal_entries orig ON orig.id = e.reversed_entry_id AND orig.tenant_id = e.tenant_id
WHERE e.tenant_id = $1 AND e.is_reversal
AND (orig.id IS NULL OR orig.reversed_by_id IS DISTINCT FROM e.id OR e.reversed_entry_id = e.id)`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Anomaly
	for rows.Next() {
		var entryID int64
		var reversedID *int64
		if err := rows.Scan(&entryID, &reversedID); err != nil {
			return nil, err
		}
		detail := "reversal has no original entry"
		if reversedID != nil {
			detail = fmt.Sprintf("reversal link to entry %d does not reciprocate", *reversedID)
		}
		out = append(out, Anomaly{Kind: KindBrokenReversalLink, EntryID: entryID, Detail: detail})
	}
	return out, rows.Err()
}

// GrandTotals sums all posted debits and credits for the tenant.
func (r *Repository) GrandTotals(ctx context.Context, tenant uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits pgtype.Numeric
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id = $1 AND e.is_posted`, tenant).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return numericToDecimal(debits), numericToDecimal(credits), nil
}

// ActiveTenants lists tenants with any journal activity, for the cron sweep.
func (r *Repository) ActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM journal_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func numericString(n pgtype.Numeric) string {
	return numericToDecimal(n).String()
}
