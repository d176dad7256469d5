package postingrules

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document source types handled by the built-in rules.
const (
	DocTypeInvoice       = "INVOICE"
	DocTypeBill          = "BILL"
	DocTypeExpense       = "EXPENSE"
	DocTypePayrollRun    = "PAYROLL_RUN"
	DocTypeAssetDisposal = "ASSET_DISPOSAL"
)

// Mapping keys resolved against the tenant's account_mappings table.
const (
	KeyAccountsReceivable = "ACCOUNTS_RECEIVABLE"
	KeyAccountsPayable    = "ACCOUNTS_PAYABLE"
	KeyRevenue            = "REVENUE"
	KeyTaxPayable         = "TAX_PAYABLE"
	KeyTaxReceivable      = "TAX_RECEIVABLE"
	KeyExpense            = "EXPENSE"
	KeyCash               = "CASH"
	KeyPayrollExpense     = "PAYROLL_EXPENSE"
	KeyWagesPayable       = "WAGES_PAYABLE"
	KeyTaxWithheld        = "TAX_WITHHELD"
	KeyFixedAssets        = "FIXED_ASSETS"
	KeyAccumDepreciation  = "ACCUM_DEPRECIATION"
	KeyDisposalGain       = "DISPOSAL_GAIN"
	KeyDisposalLoss       = "DISPOSAL_LOSS"
)

// AccountMapping links a rule key to a ledger account for one tenant. The
// debit/credit shape per document type lives in the builders; which concrete
// accounts participate is tenant configuration.
type AccountMapping struct {
	TenantID  uuid.UUID
	DocType   string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Invoice is an approved customer invoice ready for posting.
type Invoice struct {
	ID       uuid.UUID
	IssuedAt time.Time
	DueAt    time.Time
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Memo     string
}

// Bill is an approved supplier bill.
type Bill struct {
	ID       uuid.UUID
	IssuedAt time.Time
	DueAt    time.Time
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Memo     string
}

// Expense is an approved out-of-pocket or petty cash expense.
type Expense struct {
	ID      uuid.UUID
	SpentAt time.Time
	Amount  decimal.Decimal
	Memo    string
}

// PayrollRun is an approved payroll batch.
type PayrollRun struct {
	ID          uuid.UUID
	PaidAt      time.Time
	Gross       decimal.Decimal
	Withholding decimal.Decimal
	Memo        string
}

// AssetDisposal records the retirement or sale of a fixed asset.
type AssetDisposal struct {
	ID              uuid.UUID
	DisposedAt      time.Time
	Cost            decimal.Decimal
	AccumulatedDepr decimal.Decimal
	Proceeds        decimal.Decimal
	Memo            string
}
