package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocTypeJournal is the sequence document type for journal entry numbers.
const DocTypeJournal = "JE"

// JournalEntry captures one balanced accounting transaction. Entries are
// created only by the posting engine in one atomic step, are immutable once
// posted except for reversal linkage, and are never hard-deleted.
type JournalEntry struct {
	ID              int64
	TenantID        uuid.UUID
	Number          string
	PeriodID        int64
	EntryDate       time.Time
	SourceType      string
	SourceID        uuid.UUID
	Memo            string
	IsPosted        bool
	IsReversal      bool
	ReversedEntryID *int64
	ReversedByID    *int64
	PostedBy        int64
	PostedAt        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []JournalLine
}

// JournalLine stores a debit or credit amount against one account. Exactly
// one of Debit and Credit is non-zero.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	CreatedAt time.Time
}

// Totals sums the entry's debits and credits.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}
