package auditor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type stubRepository struct {
	unbalanced []Anomaly
	orphans    []Anomaly
	empty      []Anomaly
	afterClose []Anomaly
	broken     []Anomaly
	debits     decimal.Decimal
	credits    decimal.Decimal
	tenants    []uuid.UUID
	checkErr   error
}

func (s *stubRepository) UnbalancedEntries(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	return s.unbalanced, s.checkErr
}

func (s *stubRepository) OrphanLines(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	return s.orphans, nil
}

func (s *stubRepository) EmptyEntries(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	return s.empty, nil
}

func (s *stubRepository) PostedAfterClose(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	return s.afterClose, nil
}

func (s *stubRepository) BrokenReversalLinks(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error) {
	return s.broken, nil
}

func (s *stubRepository) GrandTotals(ctx context.Context, tenant uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	return s.debits, s.credits, nil
}

func (s *stubRepository) ActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	return s.tenants, nil
}

func balancedRepo() *stubRepository {
	amount := decimal.NewFromInt(12500)
	return &stubRepository{debits: amount, credits: amount}
}

func TestAuditTenantCleanLedger(t *testing.T) {
	repo := balancedRepo()
	svc := NewService(repo, internalshared.AllowAll{})
	ranAt := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return ranAt })

	tenant := uuid.New()
	report, err := svc.AuditTenant(context.Background(), tenant, 1)
	require.NoError(t, err)
	require.True(t, report.IsBalanced)
	require.Empty(t, report.Anomalies)
	require.Equal(t, tenant, report.TenantID)
	require.Equal(t, ranAt, report.RanAt)
	require.True(t, report.TotalDebits.Equal(report.TotalCredits))
}

func TestAuditTenantCollectsAndSortsAnomalies(t *testing.T) {
	repo := balancedRepo()
	repo.orphans = []Anomaly{{Kind: KindOrphanLine, EntryID: 9, Detail: "line 42 has no entry"}}
	repo.unbalanced = []Anomaly{
		{Kind: KindUnbalancedEntry, EntryID: 7, Detail: "debits 10 != credits 9"},
		{Kind: KindUnbalancedEntry, EntryID: 3, Detail: "debits 5 != credits 4"},
	}
	repo.broken = []Anomaly{{Kind: KindBrokenReversalLink, EntryID: 11, Detail: "reversal points nowhere"}}
	svc := NewService(repo, internalshared.AllowAll{})

	report, err := svc.AuditTenant(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	require.False(t, report.IsBalanced)
	require.Len(t, report.Anomalies, 4)

	kinds := make([]string, 0, len(report.Anomalies))
	for _, a := range report.Anomalies {
		kinds = append(kinds, a.Kind)
	}
	require.Equal(t, []string{KindBrokenReversalLink, KindOrphanLine, KindUnbalancedEntry, KindUnbalancedEntry}, kinds)
	require.Equal(t, int64(3), report.Anomalies[2].EntryID, "same-kind anomalies sort by entry id")
}

func TestAuditTenantFlagsGrandTotalMismatch(t *testing.T) {
	repo := &stubRepository{debits: decimal.NewFromInt(100), credits: decimal.NewFromInt(99)}
	svc := NewService(repo, internalshared.AllowAll{})

	report, err := svc.AuditTenant(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	require.False(t, report.IsBalanced)
	require.Len(t, report.Anomalies, 1)
	require.Equal(t, KindGrandTotalMismatch, report.Anomalies[0].Kind)
}

func TestAuditTenantRequiresTenant(t *testing.T) {
	svc := NewService(balancedRepo(), internalshared.AllowAll{})
	_, err := svc.AuditTenant(context.Background(), uuid.Nil, 1)
	require.ErrorIs(t, err, internalshared.ErrTenantRequired)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, uuid.UUID, int64, internalshared.Capability) error {
	return internalshared.ErrForbidden
}

func TestAuditTenantRequiresCapability(t *testing.T) {
	svc := NewService(balancedRepo(), denyAll{})
	_, err := svc.AuditTenant(context.Background(), uuid.New(), 1)
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestAuditTenantPropagatesCheckErrors(t *testing.T) {
	repo := balancedRepo()
	repo.checkErr = errors.New("query timeout")
	svc := NewService(repo, internalshared.AllowAll{})

	_, err := svc.AuditTenant(context.Background(), uuid.New(), 1)
	require.ErrorContains(t, err, "query timeout")
}

func TestActiveTenants(t *testing.T) {
	repo := balancedRepo()
	repo.tenants = []uuid.UUID{uuid.New(), uuid.New()}
	svc := NewService(repo, internalshared.AllowAll{})

	tenants, err := svc.ActiveTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)
}
