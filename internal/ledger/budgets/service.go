package budgets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort defines data access used by the budget service.
type RepositoryPort interface {
	Upsert(ctx context.Context, line BudgetLine) (BudgetLine, error)
	ListForPeriod(ctx context.Context, tenant uuid.UUID, periodID int64) ([]BudgetLine, error)
	Delete(ctx context.Context, tenant uuid.UUID, periodID, accountID int64) error
}

// UpsertInput describes a budget line to set.
type UpsertInput struct {
	TenantID  uuid.UUID
	PeriodID  int64
	AccountID int64
	Amount    decimal.Decimal
	Notes     string
	ActorID   int64
}

// Validate checks the input is usable. Negative budgets are allowed; a
// negative amount plans contra activity against the account's normal side.
func (in UpsertInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return internalshared.ErrTenantRequired
	}
	if in.PeriodID == 0 {
		return errors.New("ledger: budget period id required")
	}
	if in.AccountID == 0 {
		return errors.New("ledger: budget account id required")
	}
	return nil
}

// Service manages per-period account budgets.
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

// Set installs or replaces the budget for (period, account).
func (s *Service) Set(ctx context.Context, in UpsertInput) (BudgetLine, error) {
	if err := in.Validate(); err != nil {
		return BudgetLine{}, err
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, in.TenantID, in.ActorID, internalshared.CanManageBudgets); err != nil {
			return BudgetLine{}, err
		}
	}
	line, err := s.repo.Upsert(ctx, BudgetLine{
		TenantID:  in.TenantID,
		PeriodID:  in.PeriodID,
		AccountID: in.AccountID,
		Amount:    in.Amount,
		Notes:     in.Notes,
	})
	if err != nil {
		return BudgetLine{}, err
	}
	s.record(ctx, in.TenantID, in.ActorID, "budget.set", line)
	return line, nil
}

// ListForPeriod returns the period's budget.
func (s *Service) ListForPeriod(ctx context.Context, tenant uuid.UUID, periodID int64) ([]BudgetLine, error) {
	return s.repo.ListForPeriod(ctx, tenant, periodID)
}

// Remove deletes a budget line.
func (s *Service) Remove(ctx context.Context, tenant uuid.UUID, periodID, accountID, actor int64) error {
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanManageBudgets); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, tenant, periodID, accountID); err != nil {
		return err
	}
	s.record(ctx, tenant, actor, "budget.remove", BudgetLine{PeriodID: periodID, AccountID: accountID})
	return nil
}

func (s *Service) record(ctx context.Context, tenant uuid.UUID, actor int64, action string, line BudgetLine) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		TenantID: tenant,
		ActorID:  actor,
		Action:   action,
		Entity:   "budget_line",
		EntityID: fmt.Sprintf("%d:%d", line.PeriodID, line.AccountID),
		At:       s.now(),
	})
}
