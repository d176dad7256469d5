// Package shared holds the error taxonomy used across the ledger packages.
package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit for an entry.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrMixedLine indicates a line carrying both a debit and a credit.
	ErrMixedLine = errors.New("ledger: line must be either debit or credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("ledger: line amounts must be non-negative")
	// ErrZeroLine indicates a line with neither debit nor credit.
	ErrZeroLine = errors.New("ledger: line must carry a non-zero amount")
	// ErrInactiveAccount indicates a posting against an inactive or locked account.
	ErrInactiveAccount = errors.New("ledger: account does not accept postings")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDuplicateCode indicates the account code already exists in the tenant.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrInvalidParent indicates a cross-tenant parent or a parent cycle.
	ErrInvalidParent = errors.New("ledger: invalid parent account")
	// ErrSystemAccountProtected indicates a system account cannot be changed.
	ErrSystemAccountProtected = errors.New("ledger: system account is protected")
	// ErrAccountInUse indicates the account has postings in the current fiscal year.
	ErrAccountInUse = errors.New("ledger: account has open-period postings")
	// ErrNoPeriodDefined indicates no fiscal period covers the date.
	ErrNoPeriodDefined = errors.New("ledger: no period defined for date")
	// ErrPeriodLocked indicates posting into a closed period.
	ErrPeriodLocked = errors.New("ledger: period is closed")
	// ErrAlreadyClosed indicates closing an already closed period.
	ErrAlreadyClosed = errors.New("ledger: period already closed")
	// ErrNotClosed indicates reopening a period that is not closed.
	ErrNotClosed = errors.New("ledger: period is not closed")
	// ErrPeriodOverlap indicates overlapping period ranges inside a year.
	ErrPeriodOverlap = errors.New("ledger: period range overlaps existing period")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrNotPosted indicates the entry is not in posted state.
	ErrNotPosted = errors.New("ledger: journal entry is not posted")
	// ErrAlreadyReversed indicates a reversal already references the entry.
	ErrAlreadyReversed = errors.New("ledger: journal entry already reversed")
	// ErrSequenceExhausted indicates the sequence allocator gave up after retries.
	ErrSequenceExhausted = errors.New("ledger: document sequence allocation exhausted")
	// ErrSourceAlreadyLinked indicates the source document already produced an entry.
	ErrSourceAlreadyLinked = errors.New("ledger: source document already posted")
	// ErrMappingNotFound indicates a posting-rule account mapping is missing.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
)
