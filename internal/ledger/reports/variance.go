package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BudgetAmount is one account's planned amount for a period.
type BudgetAmount struct {
	AccountID int64
	Code      string
	Name      string
	Amount    decimal.Decimal
}

// BudgetVarianceRow compares planned against actual activity for one account.
// Actuals are signed by the account's normal balance, matching the budget
// convention.
type BudgetVarianceRow struct {
	AccountID   int64           `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Budget      decimal.Decimal `json:"budget"`
	Actual      decimal.Decimal `json:"actual"`
	Variance    decimal.Decimal `json:"variance"`
	VariancePct decimal.Decimal `json:"variance_pct"`
}

// BudgetVariance is the budget vs actual report for one period.
type BudgetVariance struct {
	PeriodID    int64               `json:"period_id"`
	Rows        []BudgetVarianceRow `json:"rows"`
	TotalBudget decimal.Decimal     `json:"total_budget"`
	TotalActual decimal.Decimal     `json:"total_actual"`
}

// BuildBudgetVariance joins budgets with period actuals by account. Budgeted
// accounts with no activity show zero actuals; unbudgeted activity is omitted.
func BuildBudgetVariance(periodID int64, budgets []BudgetAmount, actuals []AccountBalance) BudgetVariance {
	byAccount := make(map[int64]AccountBalance, len(actuals))
	for _, acc := range actuals {
		byAccount[acc.AccountID] = acc
	}
	report := BudgetVariance{
		PeriodID:    periodID,
		Rows:        make([]BudgetVarianceRow, 0, len(budgets)),
		TotalBudget: decimal.Zero,
		TotalActual: decimal.Zero,
	}
	for _, budget := range budgets {
		actual := decimal.Zero
		if acc, ok := byAccount[budget.AccountID]; ok {
			actual = acc.Net()
		}
		row := BudgetVarianceRow{
			AccountID:   budget.AccountID,
			Code:        budget.Code,
			Name:        budget.Name,
			Budget:      budget.Amount,
			Actual:      actual,
			Variance:    actual.Sub(budget.Amount),
			VariancePct: variancePct(actual, budget.Amount),
		}
		report.Rows = append(report.Rows, row)
		report.TotalBudget = report.TotalBudget.Add(budget.Amount)
		report.TotalActual = report.TotalActual.Add(actual)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Code < report.Rows[j].Code })
	return report
}
