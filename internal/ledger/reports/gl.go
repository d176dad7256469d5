package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
)

// LedgerLine is one posted journal line against an account.
type LedgerLine struct {
	EntryID   int64           `json:"entry_id"`
	Number    string          `json:"number"`
	EntryDate time.Time       `json:"entry_date"`
	Memo      string          `json:"memo,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// GeneralLedgerLine is a ledger line with its running balance.
type GeneralLedgerLine struct {
	LedgerLine
	Running decimal.Decimal `json:"running"`
}

// GeneralLedger is one account's chronological activity with running
// balances under the normal-balance sign convention.
type GeneralLedger struct {
	AccountID     int64               `json:"account_id"`
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	NormalBalance string              `json:"normal_balance"`
	Opening       decimal.Decimal     `json:"opening"`
	Lines         []GeneralLedgerLine `json:"lines"`
	Closing       decimal.Decimal     `json:"closing"`
}

// BuildGeneralLedger threads a running balance through the account's lines.
// The opening balance is expected debit-positive; it is re-signed to the
// account's normal balance before the walk.
func BuildGeneralLedger(account AccountBalance, lines []LedgerLine) GeneralLedger {
	opening := account.Opening
	if account.NormalBalance == accounts.NormalBalanceCredit {
		opening = opening.Neg()
	}
	gl := GeneralLedger{
		AccountID:     account.AccountID,
		Code:          account.Code,
		Name:          account.Name,
		NormalBalance: string(account.NormalBalance),
		Opening:       opening,
		Lines:         make([]GeneralLedgerLine, 0, len(lines)),
	}
	running := opening
	for _, line := range lines {
		movement := line.Debit.Sub(line.Credit)
		if account.NormalBalance == accounts.NormalBalanceCredit {
			movement = movement.Neg()
		}
		running = running.Add(movement)
		gl.Lines = append(gl.Lines, GeneralLedgerLine{LedgerLine: line, Running: running})
	}
	gl.Closing = running
	return gl
}
