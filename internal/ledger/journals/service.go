package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	"github.com/meridian-erp/meridian-erp/internal/ledger/sequences"
	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Invalidator drops cached report payloads after a committed mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, tenant uuid.UUID)
}

// MetricsRecorder counts committed postings and reversals.
type MetricsRecorder interface {
	PostingCommitted()
	ReversalCommitted()
}

// Service is the journal posting engine. It validates, numbers, and commits
// balanced entries; it never mutates account balances, which are always
// derived by summation at query time.
type Service struct {
	repo        Repository
	authz       internalshared.Authorizer
	audit       *internalshared.AuditLogger
	invalidator Invalidator
	metrics     MetricsRecorder
	txAttempts  int
	backoff     time.Duration
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, authz internalshared.Authorizer, audit *internalshared.AuditLogger, invalidator Invalidator) *Service {
	return &Service{
		repo:        repo,
		authz:       authz,
		audit:       audit,
		invalidator: invalidator,
		txAttempts:  3,
		backoff:     25 * time.Millisecond,
		sleep:       sequences.Sleep,
		now:         time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithRetryPolicy overrides the contention retry budget and the backoff
// between attempts.
func (s *Service) WithRetryPolicy(attempts int, backoff time.Duration) {
	if attempts > 0 {
		s.txAttempts = attempts
	}
	if backoff > 0 {
		s.backoff = backoff
	}
}

// WithMetrics attaches posting counters.
func (s *Service) WithMetrics(metrics MetricsRecorder) {
	s.metrics = metrics
}

// Post validates and commits a balanced entry in one atomic transaction.
// Precondition failures surface synchronously and are never retried; sequence
// contention is transient and retried with a bounded budget.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, input.TenantID, input.ActorID, internalshared.CanPost); err != nil {
			return JournalEntry{}, err
		}
	}
	var entry JournalEntry
	err := s.withContentionRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := postInTx(ctx, tx, input, false, nil)
		if err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.PostingCommitted()
	}
	s.afterCommit(ctx, input.TenantID, input.ActorID, "journal.post", entry, map[string]any{
		"number":      entry.Number,
		"source_type": input.SourceType,
		"source_id":   input.SourceID.String(),
	})
	return entry, nil
}

// withContentionRetry commits fn, rerunning it in a fresh transaction when the
// previous one failed on sequence-counter contention. Every other error
// surfaces on the first attempt.
func (s *Service) withContentionRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var lastErr error
	for attempt := 0; attempt < s.txAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoff*time.Duration(attempt)); err != nil {
				return err
			}
		}
		err := s.repo.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !sequences.IsContention(err) {
			return err
		}
		lastErr = err
	}
	return errors.Join(shared.ErrSequenceExhausted, lastErr)
}

// postInTx runs the posting algorithm: resolve period, validate accounts,
// allocate a number, insert entry and lines, link the source document.
func postInTx(ctx context.Context, tx TxRepository, input PostingInput, isReversal bool, reversedEntryID *int64) (JournalEntry, error) {
	period, err := tx.PeriodForDate(ctx, input.TenantID, input.EntryDate)
	if err != nil {
		return JournalEntry{}, err
	}
	if period.Status != periods.PeriodStatusOpen {
		return JournalEntry{}, shared.ErrPeriodLocked
	}

	ids := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.AccountID)
	}
	states, err := tx.AccountStates(ctx, input.TenantID, ids)
	if err != nil {
		return JournalEntry{}, err
	}
	for _, line := range input.Lines {
		state, ok := states[line.AccountID]
		if !ok {
			return JournalEntry{}, fmt.Errorf("%w: account %d", shared.ErrAccountNotFound, line.AccountID)
		}
		if !state.AcceptsPostings() {
			return JournalEntry{}, fmt.Errorf("%w: account %s", shared.ErrInactiveAccount, state.Code)
		}
	}

	number, err := tx.AllocateNumber(ctx, input.TenantID, DocTypeJournal)
	if err != nil {
		return JournalEntry{}, err
	}
	entry, err := tx.InsertEntry(ctx, input, period.ID, number, isReversal, reversedEntryID)
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := tx.InsertLines(ctx, entry.ID, input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.LinkSource(ctx, input.TenantID, input.SourceType, input.SourceID, entry.ID); err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// Reverse creates a compensating entry for a posted entry. The reversal is a
// new entry dated at reversal time, so the current date's period must be open;
// the original entry's lines are never edited or deleted. It allocates a
// number like Post does and shares its contention retry budget.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.TenantID == uuid.Nil {
		return JournalEntry{}, internalshared.ErrTenantRequired
	}
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, input.TenantID, input.ActorID, internalshared.CanReverse); err != nil {
			return JournalEntry{}, err
		}
	}
	var reversal JournalEntry
	err := s.withContentionRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.EntryForUpdate(ctx, input.TenantID, input.EntryID)
		if err != nil {
			return err
		}
		if !original.IsPosted {
			return shared.ErrNotPosted
		}
		if original.ReversedByID != nil {
			return shared.ErrAlreadyReversed
		}
		originalID := original.ID
		posting := PostingInput{
			TenantID:   input.TenantID,
			EntryDate:  s.now(),
			SourceType: original.SourceType + ":REVERSAL",
			SourceID:   uuid.New(),
			Memo:       defaultReversalMemo(input.Memo, original.Number),
			ActorID:    input.ActorID,
			Lines:      swapLines(original.Lines),
		}
		inserted, err := postInTx(ctx, tx, posting, true, &originalID)
		if err != nil {
			return err
		}
		if err := tx.SetReversedBy(ctx, input.TenantID, original.ID, inserted.ID); err != nil {
			return err
		}
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.ReversalCommitted()
	}
	s.afterCommit(ctx, input.TenantID, input.ActorID, "journal.reverse", reversal, map[string]any{
		"reversed_entry_id": input.EntryID,
		"reversal_number":   reversal.Number,
	})
	return reversal, nil
}

// Get returns a single entry with its lines.
func (s *Service) Get(ctx context.Context, tenant uuid.UUID, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, tenant, id)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, tenant uuid.UUID, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, tenant, filter)
}

func (s *Service) afterCommit(ctx context.Context, tenant uuid.UUID, actor int64, action string, entry JournalEntry, meta map[string]any) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, tenant)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			TenantID: tenant,
			ActorID:  actor,
			Action:   action,
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta:     meta,
			At:       s.now(),
		})
	}
}

func swapLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}

func defaultReversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}
