package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// Liabilities and equity are credit-positive; earnings for periods not yet
// closed to retained earnings appear as a synthetic equity line so the
// statement balances.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	CurrentEarnings           decimal.Decimal     `json:"current_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	Balanced                  bool                `json:"balanced"`
}

// BuildBalanceSheet aggregates cumulative balances into assets, liabilities,
// and equity sections. Revenue and expense closings fold into the synthetic
// current-earnings equity line.
func BuildBalanceSheet(balances []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Accounts: []BalanceSheetAccount{}, Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Accounts: []BalanceSheetAccount{}, Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Accounts: []BalanceSheetAccount{}, Total: decimal.Zero}
	earnings := decimal.Zero

	for _, acc := range balances {
		closing := acc.Closing()
		switch acc.Type {
		case accounts.AccountTypeAsset:
			if closing.IsZero() {
				continue
			}
			row := BalanceSheetAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Balance: closing}
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(closing)
		case accounts.AccountTypeLiability:
			if closing.IsZero() {
				continue
			}
			balance := closing.Neg()
			row := BalanceSheetAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Balance: balance}
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(balance)
		case accounts.AccountTypeEquity:
			if closing.IsZero() {
				continue
			}
			balance := closing.Neg()
			row := BalanceSheetAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Balance: balance}
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(balance)
		case accounts.AccountTypeRevenue, accounts.AccountTypeExpense:
			earnings = earnings.Add(closing.Neg())
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	total := liabilities.Total.Add(equity.Total).Add(earnings)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		CurrentEarnings:           earnings,
		TotalLiabilitiesAndEquity: total,
		Balanced:                  assets.Total.Equal(total),
	}
}

// ComparativeBalanceSheet lines up two as-of snapshots with variance.
type ComparativeBalanceSheet struct {
	Assets      []ComparativeRow `json:"assets"`
	Liabilities []ComparativeRow `json:"liabilities"`
	Equity      []ComparativeRow `json:"equity"`
}

// BuildComparativeBalanceSheet merges two snapshots by account code.
func BuildComparativeBalanceSheet(current, prior BalanceSheet) ComparativeBalanceSheet {
	return ComparativeBalanceSheet{
		Assets:      mergeBalanceRows(current.Assets.Accounts, prior.Assets.Accounts),
		Liabilities: mergeBalanceRows(current.Liabilities.Accounts, prior.Liabilities.Accounts),
		Equity:      mergeBalanceRows(current.Equity.Accounts, prior.Equity.Accounts),
	}
}

func mergeBalanceRows(current, prior []BalanceSheetAccount) []ComparativeRow {
	toPL := func(rows []BalanceSheetAccount) []ProfitAndLossAccount {
		out := make([]ProfitAndLossAccount, 0, len(rows))
		for _, r := range rows {
			out = append(out, ProfitAndLossAccount{AccountID: r.AccountID, Code: r.Code, Name: r.Name, Amount: r.Balance})
		}
		return out
	}
	return mergeComparative(toPL(current), toPL(prior))
}
