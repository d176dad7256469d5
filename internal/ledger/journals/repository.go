package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	"github.com/meridian-erp/meridian-erp/internal/ledger/sequences"
	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Repository encapsulates DB operations for journals. Entry plus line
// insertion happens inside a single transaction so a torn write cannot occur.
type Repository interface {
	Get(ctx context.Context, tenant uuid.UUID, id int64) (JournalEntry, error)
	List(ctx context.Context, tenant uuid.UUID, filter ListFilter) ([]JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a posting transaction.
type TxRepository interface {
	PeriodForDate(ctx context.Context, tenant uuid.UUID, date time.Time) (periods.Period, error)
	AccountStates(ctx context.Context, tenant uuid.UUID, ids []int64) (map[int64]AccountState, error)
	AllocateNumber(ctx context.Context, tenant uuid.UUID, docType string) (string, error)
	InsertEntry(ctx context.Context, in PostingInput, periodID int64, number string, isReversal bool, reversedEntryID *int64) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	LinkSource(ctx context.Context, tenant uuid.UUID, sourceType string, sourceID uuid.UUID, entryID int64) error
	EntryForUpdate(ctx context.Context, tenant uuid.UUID, id int64) (JournalEntry, error)
	SetReversedBy(ctx context.Context, tenant uuid.UUID, originalID, reversalID int64) error
}

// AccountState is the slice of account data the posting engine validates.
type AccountState struct {
	ID       int64
	Code     string
	IsActive bool
	IsLocked bool
}

// AcceptsPostings mirrors accounts.Account.AcceptsPostings.
func (a AccountState) AcceptsPostings() bool {
	return a.IsActive && !a.IsLocked
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, tenant_id, number, period_id, entry_date, source_type, source_id, memo, is_posted, is_reversal, reversed_entry_id, reversed_by_id, posted_by, posted_at, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.TenantID, &e.Number, &e.PeriodID, &e.EntryDate, &e.SourceType, &e.SourceID, &e.Memo,
		&e.IsPosted, &e.IsReversal, &e.ReversedEntryID, &e.ReversedByID, &e.PostedBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) Get(ctx context.Context, tenant uuid.UUID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenant, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.db, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) List(ctx context.Context, tenant uuid.UUID, filter ListFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE tenant_id=$1`
	args := []any{tenant}
	argNum := 2
	if filter.PeriodID > 0 {
		query += fmt.Sprintf(" AND period_id = $%d", argNum)
		args = append(args, filter.PeriodID)
		argNum++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND entry_date >= $%d", argNum)
		args = append(args, filter.From)
		argNum++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND entry_date <= $%d", argNum)
		args = append(args, filter.To)
		argNum++
	}
	query += " ORDER BY entry_date DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// PeriodForDate locks the covering period row so it cannot transition to
// closed while the posting commits.
func (r *txRepository) PeriodForDate(ctx context.Context, tenant uuid.UUID, date time.Time) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, fiscal_year_id, number, start_date, end_date, status, closed_at, closed_by, created_at, updated_at
FROM fiscal_periods WHERE tenant_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`, tenant, date).
		Scan(&p.ID, &p.TenantID, &p.FiscalYearID, &p.Number, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrNoPeriodDefined
		}
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) AccountStates(ctx context.Context, tenant uuid.UUID, ids []int64) (map[int64]AccountState, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, is_active, is_locked FROM gl_accounts WHERE tenant_id=$1 AND id = ANY($2)`, tenant, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	states := make(map[int64]AccountState, len(ids))
	for rows.Next() {
		var s AccountState
		if err := rows.Scan(&s.ID, &s.Code, &s.IsActive, &s.IsLocked); err != nil {
			return nil, err
		}
		states[s.ID] = s
	}
	return states, rows.Err()
}

func (r *txRepository) AllocateNumber(ctx context.Context, tenant uuid.UUID, docType string) (string, error) {
	return sequences.Allocate(ctx, r.tx, tenant, docType)
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput, periodID int64, number string, isReversal bool, reversedEntryID *int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, number, period_id, entry_date, source_type, source_id, memo, is_posted, is_reversal, reversed_entry_id, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,true,$8,$9,$10,NOW()) RETURNING id, posted_at, created_at, updated_at`,
		in.TenantID, number, periodID, in.EntryDate, in.SourceType, in.SourceID, in.Memo, isReversal, reversedEntryID, in.ActorID)
	entry := JournalEntry{
		TenantID:        in.TenantID,
		Number:          number,
		PeriodID:        periodID,
		EntryDate:       in.EntryDate,
		SourceType:      in.SourceType,
		SourceID:        in.SourceID,
		Memo:            in.Memo,
		IsPosted:        true,
		IsReversal:      isReversal,
		ReversedEntryID: reversedEntryID,
		PostedBy:        in.ActorID,
	}
	if err := row.Scan(&entry.ID, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		var inserted JournalLine
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4) RETURNING id, created_at`, entryID, line.AccountID, line.Debit.String(), line.Credit.String()).
			Scan(&inserted.ID, &inserted.CreatedAt)
		if err != nil {
			return nil, err
		}
		inserted.EntryID = entryID
		inserted.AccountID = line.AccountID
		inserted.Debit = line.Debit
		inserted.Credit = line.Credit
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) LinkSource(ctx context.Context, tenant uuid.UUID, sourceType string, sourceID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (tenant_id, source_type, source_id, entry_id) VALUES ($1,$2,$3,$4)`,
		tenant, sourceType, sourceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) EntryForUpdate(ctx context.Context, tenant uuid.UUID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenant, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.tx, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// SetReversedBy records the reversal linkage on the original entry. This is
// the only mutation ever applied to a posted entry; line data is untouched.
func (r *txRepository) SetReversedBy(ctx context.Context, tenant uuid.UUID, originalID, reversalID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET reversed_by_id=$3, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND reversed_by_id IS NULL`, tenant, originalID, reversalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyReversed
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, created_at FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		var debit, credit pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &debit, &credit, &line.CreatedAt); err != nil {
			return nil, err
		}
		line.Debit = numericToDecimal(debit)
		line.Credit = numericToDecimal(credit)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
