package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// LineInput describes a journal line in a posting request.
type LineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	TenantID   uuid.UUID
	EntryDate  time.Time
	SourceType string
	SourceID   uuid.UUID
	Memo       string
	ActorID    int64
	Lines      []LineInput
}

// Validate ensures posting input meets the double-entry invariants. Amounts
// are compared exactly; there is no tolerance for floating point drift.
func (in PostingInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return internalshared.ErrTenantRequired
	}
	if in.EntryDate.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if in.SourceType == "" {
		return errors.New("ledger: source type required")
	}
	if in.SourceID == uuid.Nil {
		return errors.New("ledger: source id required")
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d", shared.ErrNegativeAmount, idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("%w: line %d", shared.ErrMixedLine, idx)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return fmt.Errorf("%w: line %d", shared.ErrZeroLine, idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: entry debits %s != credits %s", shared.ErrUnbalanced, debit, credit)
	}
	return nil
}

// ReverseInput wraps parameters for reversing a posted entry.
type ReverseInput struct {
	TenantID uuid.UUID
	EntryID  int64
	ActorID  int64
	Memo     string
}

// ListFilter narrows entry listings.
type ListFilter struct {
	PeriodID int64
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
