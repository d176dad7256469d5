package auditor

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Anomaly kinds reported by the integrity checks.
const (
	KindUnbalancedEntry    = "UNBALANCED_ENTRY"
	KindOrphanLine         = "ORPHAN_LINE"
	KindEmptyEntry         = "EMPTY_ENTRY"
	KindPostedAfterClose   = "POSTED_AFTER_CLOSE"
	KindBrokenReversalLink = "BROKEN_REVERSAL_LINK"
	KindGrandTotalMismatch = "GRAND_TOTAL_MISMATCH"
)

// Anomaly is one integrity finding. The auditor reports; it never repairs.
type Anomaly struct {
	Kind    string `json:"kind"`
	EntryID int64  `json:"entry_id,omitempty"`
	Detail  string `json:"detail"`
}

// Report summarises one tenant's ledger integrity scan.
type Report struct {
	TenantID     uuid.UUID       `json:"tenant_id"`
	RanAt        time.Time       `json:"ran_at"`
	IsBalanced   bool            `json:"is_balanced"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	Anomalies    []Anomaly       `json:"anomalies"`
}
