package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report. Revenue is
// credit-positive, expenses debit-positive, so net income is their difference.
type ProfitAndLoss struct {
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome decimal.Decimal      `json:"net_income"`
}

// BuildProfitAndLoss aggregates window activity into revenue and expense
// sections. Balance sheet accounts are ignored.
func BuildProfitAndLoss(balances []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue", Accounts: []ProfitAndLossAccount{}, Total: decimal.Zero}
	expense := ProfitAndLossSection{Label: "Expense", Accounts: []ProfitAndLossAccount{}, Total: decimal.Zero}

	for _, acc := range balances {
		row := ProfitAndLossAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name}
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			row.Amount = acc.Credit.Sub(acc.Debit)
			if row.Amount.IsZero() {
				continue
			}
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case accounts.AccountTypeExpense:
			row.Amount = acc.Debit.Sub(acc.Credit)
			if row.Amount.IsZero() {
				continue
			}
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}

// ComparativeRow lines up one account across two windows.
type ComparativeRow struct {
	AccountID   int64           `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Current     decimal.Decimal `json:"current"`
	Prior       decimal.Decimal `json:"prior"`
	Variance    decimal.Decimal `json:"variance"`
	VariancePct decimal.Decimal `json:"variance_pct"`
}

// ComparativeProfitAndLoss is a two-window P&L with per-account variance.
type ComparativeProfitAndLoss struct {
	Revenue           []ComparativeRow `json:"revenue"`
	Expense           []ComparativeRow `json:"expense"`
	NetIncomeCurrent  decimal.Decimal  `json:"net_income_current"`
	NetIncomePrior    decimal.Decimal  `json:"net_income_prior"`
	NetIncomeVariance decimal.Decimal  `json:"net_income_variance"`
	NetIncomePct      decimal.Decimal  `json:"net_income_pct"`
}

// BuildComparativeProfitAndLoss merges two windows' P&Ls by account code.
// Accounts active in only one window appear with a zero in the other.
func BuildComparativeProfitAndLoss(current, prior ProfitAndLoss) ComparativeProfitAndLoss {
	out := ComparativeProfitAndLoss{
		Revenue:          mergeComparative(current.Revenue.Accounts, prior.Revenue.Accounts),
		Expense:          mergeComparative(current.Expense.Accounts, prior.Expense.Accounts),
		NetIncomeCurrent: current.NetIncome,
		NetIncomePrior:   prior.NetIncome,
	}
	out.NetIncomeVariance = current.NetIncome.Sub(prior.NetIncome)
	out.NetIncomePct = variancePct(current.NetIncome, prior.NetIncome)
	return out
}

func mergeComparative(current, prior []ProfitAndLossAccount) []ComparativeRow {
	byCode := make(map[string]*ComparativeRow)
	codes := make([]string, 0, len(current)+len(prior))
	row := func(acc ProfitAndLossAccount) *ComparativeRow {
		r, ok := byCode[acc.Code]
		if !ok {
			r = &ComparativeRow{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name}
			byCode[acc.Code] = r
			codes = append(codes, acc.Code)
		}
		return r
	}
	for _, acc := range current {
		row(acc).Current = acc.Amount
	}
	for _, acc := range prior {
		row(acc).Prior = acc.Amount
	}
	sort.Strings(codes)
	out := make([]ComparativeRow, 0, len(codes))
	for _, code := range codes {
		r := byCode[code]
		r.Variance = r.Current.Sub(r.Prior)
		r.VariancePct = variancePct(r.Current, r.Prior)
		out = append(out, *r)
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// variancePct returns (current-prior)/|prior| as a percentage, zero when the
// prior amount is zero.
func variancePct(current, prior decimal.Decimal) decimal.Decimal {
	if prior.IsZero() {
		return decimal.Zero
	}
	return current.Sub(prior).Div(prior.Abs()).Mul(hundred).Round(2)
}
