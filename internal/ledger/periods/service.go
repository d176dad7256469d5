package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// CreateYearInput describes a fiscal year to provision.
type CreateYearInput struct {
	TenantID  uuid.UUID
	Label     string
	StartDate time.Time
	Months    int
	ActorID   int64
}

// Validate ensures the year input is usable.
func (in CreateYearInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return internalshared.ErrTenantRequired
	}
	if in.Label == "" {
		return errors.New("ledger: fiscal year label required")
	}
	if in.StartDate.IsZero() {
		return errors.New("ledger: fiscal year start date required")
	}
	if in.Months <= 0 || in.Months > 18 {
		return fmt.Errorf("ledger: fiscal year must span 1-18 months, got %d", in.Months)
	}
	return nil
}

// RepositoryPort defines data access used by the calendar service.
type RepositoryPort interface {
	CreateYearWithPeriods(ctx context.Context, in CreateYearInput) (FiscalYear, []Period, error)
	YearRangeConflict(ctx context.Context, tenant uuid.UUID, start, end time.Time) (bool, error)
	FindByDate(ctx context.Context, tenant uuid.UUID, date time.Time) (Period, error)
	Transition(ctx context.Context, tenant uuid.UUID, id int64, target PeriodStatus, actor int64, at time.Time) (Period, error)
	ListByYear(ctx context.Context, tenant uuid.UUID, yearID int64) ([]Period, error)
	ListYears(ctx context.Context, tenant uuid.UUID) ([]FiscalYear, error)
}

// Service orchestrates the fiscal calendar lifecycle.
type Service struct {
	repo  RepositoryPort
	authz internalshared.Authorizer
	audit *internalshared.AuditLogger
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo RepositoryPort, authz internalshared.Authorizer, audit *internalshared.AuditLogger) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateYear provisions a fiscal year with contiguous monthly periods.
// Callers must provision periods before posting into their date ranges.
func (s *Service) CreateYear(ctx context.Context, in CreateYearInput) (FiscalYear, []Period, error) {
	if err := in.Validate(); err != nil {
		return FiscalYear{}, nil, err
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, in.TenantID, in.ActorID, internalshared.CanClosePeriod); err != nil {
			return FiscalYear{}, nil, err
		}
	}
	end := in.StartDate.AddDate(0, in.Months, -1)
	conflict, err := s.repo.YearRangeConflict(ctx, in.TenantID, in.StartDate, end)
	if err != nil {
		return FiscalYear{}, nil, err
	}
	if conflict {
		return FiscalYear{}, nil, shared.ErrPeriodOverlap
	}
	return s.repo.CreateYearWithPeriods(ctx, in)
}

// Resolve returns the period covering date, whatever its status. Callers that
// post must additionally check the status inside their own transaction.
func (s *Service) Resolve(ctx context.Context, tenant uuid.UUID, date time.Time) (Period, error) {
	return s.repo.FindByDate(ctx, tenant, date)
}

// Close transitions a period open -> closed. Closing is one-way unless
// explicitly reopened.
func (s *Service) Close(ctx context.Context, tenant uuid.UUID, periodID, actor int64) (Period, error) {
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanClosePeriod); err != nil {
			return Period{}, err
		}
	}
	period, err := s.repo.Transition(ctx, tenant, periodID, PeriodStatusClosed, actor, s.now())
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, tenant, actor, "period.close", period.ID)
	return period, nil
}

// Reopen transitions a period closed -> open. Privileged operation.
func (s *Service) Reopen(ctx context.Context, tenant uuid.UUID, periodID, actor int64) (Period, error) {
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanReopenPeriod); err != nil {
			return Period{}, err
		}
	}
	period, err := s.repo.Transition(ctx, tenant, periodID, PeriodStatusOpen, actor, s.now())
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, tenant, actor, "period.reopen", period.ID)
	return period, nil
}

// ListYears returns the tenant's fiscal years.
func (s *Service) ListYears(ctx context.Context, tenant uuid.UUID) ([]FiscalYear, error) {
	return s.repo.ListYears(ctx, tenant)
}

// ListPeriods returns a year's periods in sequence.
func (s *Service) ListPeriods(ctx context.Context, tenant uuid.UUID, yearID int64) ([]Period, error) {
	return s.repo.ListByYear(ctx, tenant, yearID)
}

func (s *Service) record(ctx context.Context, tenant uuid.UUID, actor int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		TenantID: tenant,
		ActorID:  actor,
		Action:   action,
		Entity:   "fiscal_period",
		EntityID: fmt.Sprintf("%d", id),
		At:       s.now(),
	})
}

// CreateYearWithPeriods provisions the year and its periods in one transaction.
func (r *Repository) CreateYearWithPeriods(ctx context.Context, in CreateYearInput) (FiscalYear, []Period, error) {
	var year FiscalYear
	var generated []Period
	err := r.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		start := in.StartDate
		end := start.AddDate(0, in.Months, -1)
		var err error
		year, err = r.InsertYear(ctx, tx, in.TenantID, in.Label, start, end)
		if err != nil {
			return err
		}
		for _, window := range MonthlyWindows(start, in.Months) {
			period, err := r.InsertPeriod(ctx, tx, in.TenantID, year.ID, window.Number, window.StartDate, window.EndDate)
			if err != nil {
				return err
			}
			generated = append(generated, period)
		}
		return nil
	})
	if err != nil {
		return FiscalYear{}, nil, err
	}
	return year, generated, nil
}

// Transition locks the period row and applies the status change.
func (r *Repository) Transition(ctx context.Context, tenant uuid.UUID, id int64, target PeriodStatus, actor int64, at time.Time) (Period, error) {
	var period Period
	err := r.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		current, err := r.LoadForUpdate(ctx, tx, tenant, id)
		if err != nil {
			return err
		}
		switch target {
		case PeriodStatusClosed:
			if current.Status == PeriodStatusClosed {
				return shared.ErrAlreadyClosed
			}
		case PeriodStatusOpen:
			if current.Status == PeriodStatusOpen {
				return shared.ErrNotClosed
			}
		}
		if err := r.UpdateStatus(ctx, tx, tenant, id, target, actor, at); err != nil {
			return err
		}
		period = current
		period.Status = target
		if target == PeriodStatusClosed {
			closedAt := at
			period.ClosedAt = &closedAt
			period.ClosedBy = &actor
		} else {
			period.ClosedAt = nil
			period.ClosedBy = nil
		}
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return period, nil
}
