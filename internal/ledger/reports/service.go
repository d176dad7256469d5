package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/postingrules"
)

// RepositoryPort defines the aggregation queries the reporting engine needs.
type RepositoryPort interface {
	AccountActivity(ctx context.Context, tenant uuid.UUID, from, to time.Time) ([]AccountBalance, error)
	AccountActivityAsOf(ctx context.Context, tenant uuid.UUID, asOf time.Time) ([]AccountBalance, error)
	AccountActivityForAccount(ctx context.Context, tenant uuid.UUID, accountID int64, from, to time.Time) (AccountBalance, error)
	LedgerLines(ctx context.Context, tenant uuid.UUID, accountID int64, from, to time.Time) ([]LedgerLine, error)
	OpenDocuments(ctx context.Context, tenant uuid.UUID, sourceType string, asOf time.Time) ([]OpenDocument, error)
	BudgetAmounts(ctx context.Context, tenant uuid.UUID, periodID int64) ([]BudgetAmount, error)
	PeriodWindow(ctx context.Context, tenant uuid.UUID, periodID int64) (time.Time, time.Time, error)
	MappedAccountIDs(ctx context.Context, tenant uuid.UUID, keys []string) (map[int64]bool, error)
}

// Service is the reporting engine. All reads are derived from posted journal
// lines at query time; the cache is an optional read-through layer in front.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService constructs a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// TrialBalance produces per-account totals for the window.
func (s *Service) TrialBalance(ctx context.Context, tenant uuid.UUID, from, to time.Time) (TrialBalance, error) {
	key := fmt.Sprintf("tb:%s:%s", day(from), day(to))
	var cached TrialBalance
	if s.cache.Get(ctx, tenant, key, &cached) {
		return cached, nil
	}
	balances, err := s.repo.AccountActivity(ctx, tenant, from, to)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(balances)
	s.cache.Set(ctx, tenant, key, tb)
	return tb, nil
}

// GeneralLedger produces one account's activity with running balances.
func (s *Service) GeneralLedger(ctx context.Context, tenant uuid.UUID, accountID int64, from, to time.Time) (GeneralLedger, error) {
	account, err := s.repo.AccountActivityForAccount(ctx, tenant, accountID, from, to)
	if err != nil {
		return GeneralLedger{}, err
	}
	lines, err := s.repo.LedgerLines(ctx, tenant, accountID, from, to)
	if err != nil {
		return GeneralLedger{}, err
	}
	return BuildGeneralLedger(account, lines), nil
}

// ProfitAndLoss produces the single-window income statement.
func (s *Service) ProfitAndLoss(ctx context.Context, tenant uuid.UUID, from, to time.Time) (ProfitAndLoss, error) {
	key := fmt.Sprintf("pl:%s:%s", day(from), day(to))
	var cached ProfitAndLoss
	if s.cache.Get(ctx, tenant, key, &cached) {
		return cached, nil
	}
	balances, err := s.repo.AccountActivity(ctx, tenant, from, to)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	pl := BuildProfitAndLoss(balances)
	s.cache.Set(ctx, tenant, key, pl)
	return pl, nil
}

// ComparativeProfitAndLoss lines up two windows with variance.
func (s *Service) ComparativeProfitAndLoss(ctx context.Context, tenant uuid.UUID, from, to, priorFrom, priorTo time.Time) (ComparativeProfitAndLoss, error) {
	current, err := s.ProfitAndLoss(ctx, tenant, from, to)
	if err != nil {
		return ComparativeProfitAndLoss{}, err
	}
	prior, err := s.ProfitAndLoss(ctx, tenant, priorFrom, priorTo)
	if err != nil {
		return ComparativeProfitAndLoss{}, err
	}
	return BuildComparativeProfitAndLoss(current, prior), nil
}

// BalanceSheet produces the as-of statement of financial position.
func (s *Service) BalanceSheet(ctx context.Context, tenant uuid.UUID, asOf time.Time) (BalanceSheet, error) {
	key := fmt.Sprintf("bs:%s", day(asOf))
	var cached BalanceSheet
	if s.cache.Get(ctx, tenant, key, &cached) {
		return cached, nil
	}
	balances, err := s.repo.AccountActivityAsOf(ctx, tenant, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BuildBalanceSheet(balances)
	s.cache.Set(ctx, tenant, key, bs)
	return bs, nil
}

// ComparativeBalanceSheet lines up two as-of snapshots with variance.
func (s *Service) ComparativeBalanceSheet(ctx context.Context, tenant uuid.UUID, asOf, priorAsOf time.Time) (ComparativeBalanceSheet, error) {
	current, err := s.BalanceSheet(ctx, tenant, asOf)
	if err != nil {
		return ComparativeBalanceSheet{}, err
	}
	prior, err := s.BalanceSheet(ctx, tenant, priorAsOf)
	if err != nil {
		return ComparativeBalanceSheet{}, err
	}
	return BuildComparativeBalanceSheet(current, prior), nil
}

// ReceivablesAging buckets open customer invoices by days past due.
func (s *Service) ReceivablesAging(ctx context.Context, tenant uuid.UUID, asOf time.Time) (AgingReport, error) {
	return s.aging(ctx, tenant, postingrules.DocTypeInvoice, asOf)
}

// PayablesAging buckets open supplier bills by days past due.
func (s *Service) PayablesAging(ctx context.Context, tenant uuid.UUID, asOf time.Time) (AgingReport, error) {
	return s.aging(ctx, tenant, postingrules.DocTypeBill, asOf)
}

func (s *Service) aging(ctx context.Context, tenant uuid.UUID, sourceType string, asOf time.Time) (AgingReport, error) {
	key := fmt.Sprintf("aging:%s:%s", sourceType, day(asOf))
	var cached AgingReport
	if s.cache.Get(ctx, tenant, key, &cached) {
		return cached, nil
	}
	docs, err := s.repo.OpenDocuments(ctx, tenant, sourceType, asOf)
	if err != nil {
		return AgingReport{}, err
	}
	report := BuildAging(asOf, docs)
	s.cache.Set(ctx, tenant, key, report)
	return report, nil
}

// BudgetVariance compares a period's budget against posted actuals.
func (s *Service) BudgetVariance(ctx context.Context, tenant uuid.UUID, periodID int64) (BudgetVariance, error) {
	start, end, err := s.repo.PeriodWindow(ctx, tenant, periodID)
	if err != nil {
		return BudgetVariance{}, err
	}
	budgets, err := s.repo.BudgetAmounts(ctx, tenant, periodID)
	if err != nil {
		return BudgetVariance{}, err
	}
	actuals, err := s.repo.AccountActivity(ctx, tenant, start, end)
	if err != nil {
		return BudgetVariance{}, err
	}
	return BuildBudgetVariance(periodID, budgets, actuals), nil
}

// CashFlow derives the indirect cash flow statement for the window. Cash and
// fixed-asset classification comes from the tenant's account mappings.
func (s *Service) CashFlow(ctx context.Context, tenant uuid.UUID, from, to time.Time) (CashFlowStatement, error) {
	key := fmt.Sprintf("cf:%s:%s", day(from), day(to))
	var cached CashFlowStatement
	if s.cache.Get(ctx, tenant, key, &cached) {
		return cached, nil
	}
	balances, err := s.repo.AccountActivity(ctx, tenant, from, to)
	if err != nil {
		return CashFlowStatement{}, err
	}
	cashAccounts, err := s.repo.MappedAccountIDs(ctx, tenant, []string{postingrules.KeyCash})
	if err != nil {
		return CashFlowStatement{}, err
	}
	investingAccounts, err := s.repo.MappedAccountIDs(ctx, tenant, []string{postingrules.KeyFixedAssets, postingrules.KeyAccumDepreciation})
	if err != nil {
		return CashFlowStatement{}, err
	}
	deltas := make([]AccountDelta, 0, len(balances))
	for _, acc := range balances {
		deltas = append(deltas, AccountDelta{
			AccountID: acc.AccountID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Delta:     acc.Debit.Sub(acc.Credit),
		})
	}
	netIncome := BuildProfitAndLoss(balances).NetIncome
	stmt := BuildCashFlow(netIncome, deltas, DefaultClassifier(cashAccounts, investingAccounts))
	s.cache.Set(ctx, tenant, key, stmt)
	return stmt, nil
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
