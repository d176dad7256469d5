package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// CashFlowSection classifies a balance-sheet movement.
type CashFlowSection int

const (
	SectionCash CashFlowSection = iota
	SectionOperating
	SectionInvesting
	SectionFinancing
)

// AccountDelta is the debit-positive change in an account's balance between
// two dates.
type AccountDelta struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounts.AccountType
	Delta     decimal.Decimal
}

// Classifier assigns a balance-sheet account to a cash flow section.
type Classifier func(AccountDelta) CashFlowSection

// DefaultClassifier routes cash accounts to the cash section, fixed asset
// accounts to investing, equity to financing, and everything else to
// operating. The cash and investing sets come from the tenant's account
// mappings.
func DefaultClassifier(cashAccounts, investingAccounts map[int64]bool) Classifier {
	return func(delta AccountDelta) CashFlowSection {
		switch {
		case cashAccounts[delta.AccountID]:
			return SectionCash
		case investingAccounts[delta.AccountID]:
			return SectionInvesting
		case delta.Type == accounts.AccountTypeEquity:
			return SectionFinancing
		default:
			return SectionOperating
		}
	}
}

// CashFlowLine is one account's contribution to cash movement. A build-up of
// a non-cash asset consumes cash, so the contribution is the delta negated.
type CashFlowLine struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// CashFlowStatement is the indirect-method cash flow between two dates.
// NetChange reconciles against the cash accounts' own movement.
type CashFlowStatement struct {
	NetIncome      decimal.Decimal `json:"net_income"`
	Operating      []CashFlowLine  `json:"operating"`
	OperatingTotal decimal.Decimal `json:"operating_total"`
	Investing      []CashFlowLine  `json:"investing"`
	InvestingTotal decimal.Decimal `json:"investing_total"`
	Financing      []CashFlowLine  `json:"financing"`
	FinancingTotal decimal.Decimal `json:"financing_total"`
	NetChange      decimal.Decimal `json:"net_change"`
	CashMovement   decimal.Decimal `json:"cash_movement"`
	Reconciled     bool            `json:"reconciled"`
}

// BuildCashFlow derives the indirect cash flow from net income and balance
// sheet deltas. Revenue and expense deltas are excluded since net income
// already carries them.
func BuildCashFlow(netIncome decimal.Decimal, deltas []AccountDelta, classify Classifier) CashFlowStatement {
	stmt := CashFlowStatement{
		NetIncome:      netIncome,
		Operating:      []CashFlowLine{},
		OperatingTotal: decimal.Zero,
		Investing:      []CashFlowLine{},
		InvestingTotal: decimal.Zero,
		Financing:      []CashFlowLine{},
		FinancingTotal: decimal.Zero,
		CashMovement:   decimal.Zero,
	}
	for _, delta := range deltas {
		if delta.Type == accounts.AccountTypeRevenue || delta.Type == accounts.AccountTypeExpense {
			continue
		}
		if delta.Delta.IsZero() {
			continue
		}
		section := classify(delta)
		if section == SectionCash {
			stmt.CashMovement = stmt.CashMovement.Add(delta.Delta)
			continue
		}
		line := CashFlowLine{
			AccountID: delta.AccountID,
			Code:      delta.Code,
			Name:      delta.Name,
			Amount:    delta.Delta.Neg(),
		}
		switch section {
		case SectionInvesting:
			stmt.Investing = append(stmt.Investing, line)
			stmt.InvestingTotal = stmt.InvestingTotal.Add(line.Amount)
		case SectionFinancing:
			stmt.Financing = append(stmt.Financing, line)
			stmt.FinancingTotal = stmt.FinancingTotal.Add(line.Amount)
		default:
			stmt.Operating = append(stmt.Operating, line)
			stmt.OperatingTotal = stmt.OperatingTotal.Add(line.Amount)
		}
	}
	for _, section := range [][]CashFlowLine{stmt.Operating, stmt.Investing, stmt.Financing} {
		sort.Slice(section, func(i, j int) bool { return section[i].Code < section[j].Code })
	}
	stmt.NetChange = netIncome.Add(stmt.OperatingTotal).Add(stmt.InvestingTotal).Add(stmt.FinancingTotal)
	stmt.Reconciled = stmt.NetChange.Equal(stmt.CashMovement)
	return stmt
}
