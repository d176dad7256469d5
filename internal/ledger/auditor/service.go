package auditor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines the integrity queries the auditor runs.
type RepositoryPort interface {
	UnbalancedEntries(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error)
	OrphanLines(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error)
	EmptyEntries(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error)
	PostedAfterClose(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error)
	BrokenReversalLinks(ctx context.Context, tenant uuid.UUID) ([]Anomaly, error)
	GrandTotals(ctx context.Context, tenant uuid.UUID) (decimal.Decimal, decimal.Decimal, error)
	ActiveTenants(ctx context.Context) ([]uuid.UUID, error)
}

// Service runs the integrity checks concurrently and assembles the report.
// It reports only; nothing is ever repaired or mutated.
type Service struct {
	repo  RepositoryPort
	authz internalshared.Authorizer
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo RepositoryPort, authz internalshared.Authorizer) *Service {
	return &Service{repo: repo, authz: authz, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AuditTenant scans one tenant's ledger for integrity anomalies.
func (s *Service) AuditTenant(ctx context.Context, tenant uuid.UUID, actor int64) (Report, error) {
	if tenant == uuid.Nil {
		return Report{}, internalshared.ErrTenantRequired
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanRunAudit); err != nil {
			return Report{}, err
		}
	}
	report := Report{
		TenantID:  tenant,
		RanAt:     s.now(),
		Anomalies: []Anomaly{},
	}

	var mu sync.Mutex
	collect := func(anomalies []Anomaly) {
		mu.Lock()
		report.Anomalies = append(report.Anomalies, anomalies...)
		mu.Unlock()
	}

	checks := []func(context.Context, uuid.UUID) ([]Anomaly, error){
		s.repo.UnbalancedEntries,
		s.repo.OrphanLines,
		s.repo.EmptyEntries,
		s.repo.PostedAfterClose,
		s.repo.BrokenReversalLinks,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, check := range checks {
		check := check
		group.Go(func() error {
			anomalies, err := check(groupCtx, tenant)
			if err != nil {
				return err
			}
			collect(anomalies)
			return nil
		})
	}
	group.Go(func() error {
		debits, credits, err := s.repo.GrandTotals(groupCtx, tenant)
		if err != nil {
			return err
		}
		mu.Lock()
		report.TotalDebits = debits
		report.TotalCredits = credits
		mu.Unlock()
		if !debits.Equal(credits) {
			collect([]Anomaly{{
				Kind:   KindGrandTotalMismatch,
				Detail: "grand debits " + debits.String() + " != grand credits " + credits.String(),
			}})
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return Report{}, err
	}

	sort.Slice(report.Anomalies, func(i, j int) bool {
		if report.Anomalies[i].Kind != report.Anomalies[j].Kind {
			return report.Anomalies[i].Kind < report.Anomalies[j].Kind
		}
		return report.Anomalies[i].EntryID < report.Anomalies[j].EntryID
	})
	report.IsBalanced = len(report.Anomalies) == 0 && report.TotalDebits.Equal(report.TotalCredits)
	return report, nil
}

// ActiveTenants lists tenants with journal activity for the scheduled sweep.
func (s *Service) ActiveTenants(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ActiveTenants(ctx)
}
