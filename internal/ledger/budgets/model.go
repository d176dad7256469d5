package budgets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetLine is a planned amount for one account in one fiscal period.
// Amounts follow the account's normal balance: a revenue budget of 1000 means
// 1000 expected net credit activity.
type BudgetLine struct {
	ID        int64
	TenantID  uuid.UUID
	PeriodID  int64
	AccountID int64
	Amount    decimal.Decimal
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
