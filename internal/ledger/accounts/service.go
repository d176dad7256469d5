package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// CreateInput groups fields required to create an account.
type CreateInput struct {
	TenantID      uuid.UUID
	Code          string
	Name          string
	Type          AccountType
	NormalBalance NormalBalance
	ParentID      *int64
	IsSystem      bool
	ActorID       int64
}

// Validate ensures the input meets minimum criteria.
func (in CreateInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return internalshared.ErrTenantRequired
	}
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("ledger: account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("ledger: account name required")
	}
	if !ValidType(in.Type) {
		return fmt.Errorf("ledger: unknown account type %q", in.Type)
	}
	if in.NormalBalance != "" && in.NormalBalance != NormalBalanceDebit && in.NormalBalance != NormalBalanceCredit {
		return fmt.Errorf("ledger: unknown normal balance %q", in.NormalBalance)
	}
	return nil
}

// Policy controls deactivation of accounts with open-period history.
type Policy struct {
	// AllowDeactivateWithHistory permits deactivating an account whose only
	// postings fall in since-closed periods.
	AllowDeactivateWithHistory bool
}

// Service owns chart-of-accounts business rules.
type Service struct {
	repo   Repository
	authz  internalshared.Authorizer
	audit  *internalshared.AuditLogger
	policy Policy
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, authz internalshared.Authorizer, audit *internalshared.AuditLogger, policy Policy) *Service {
	return &Service{repo: repo, authz: authz, audit: audit, policy: policy, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create inserts a new account after enforcing code uniqueness, parent tenancy
// and tree acyclicity.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, in.TenantID, in.ActorID, internalshared.CanManageAccounts); err != nil {
			return Account{}, err
		}
	}
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, in.TenantID, *in.ParentID)
		if err != nil {
			if err == shared.ErrAccountNotFound {
				return Account{}, shared.ErrInvalidParent
			}
			return Account{}, err
		}
		// A freshly created account cannot yet appear in its parent's chain,
		// but the walk also rejects a corrupted ancestry before extending it.
		chain, err := s.repo.ParentChain(ctx, in.TenantID, parent.ID)
		if err != nil {
			return Account{}, err
		}
		seen := make(map[int64]bool, len(chain))
		for _, id := range chain {
			if seen[id] {
				return Account{}, shared.ErrInvalidParent
			}
			seen[id] = true
		}
	}
	normal := in.NormalBalance
	if normal == "" {
		normal = DefaultNormalBalance(in.Type)
	}
	account, err := s.repo.Insert(ctx, in, normal)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, in.TenantID, in.ActorID, "account.create", account.ID, map[string]any{"code": account.Code})
	return account, nil
}

// Deactivate marks an account inactive so it rejects new postings.
func (s *Service) Deactivate(ctx context.Context, tenant uuid.UUID, id, actor int64) error {
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanManageAccounts); err != nil {
			return err
		}
	}
	account, err := s.repo.Get(ctx, tenant, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return shared.ErrSystemAccountProtected
	}
	if !s.policy.AllowDeactivateWithHistory {
		inUse, err := s.repo.HasPostingsInOpenPeriods(ctx, tenant, id)
		if err != nil {
			return err
		}
		if inUse {
			return shared.ErrAccountInUse
		}
	}
	if err := s.repo.SetActive(ctx, tenant, id, false); err != nil {
		return err
	}
	s.record(ctx, tenant, actor, "account.deactivate", id, nil)
	return nil
}

// Reactivate re-enables postings on a previously deactivated account.
func (s *Service) Reactivate(ctx context.Context, tenant uuid.UUID, id, actor int64) error {
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanManageAccounts); err != nil {
			return err
		}
	}
	if err := s.repo.SetActive(ctx, tenant, id, true); err != nil {
		return err
	}
	s.record(ctx, tenant, actor, "account.reactivate", id, nil)
	return nil
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, tenant uuid.UUID, id int64) (Account, error) {
	return s.repo.Get(ctx, tenant, id)
}

// List returns the tenant's accounts ordered by code.
func (s *Service) List(ctx context.Context, tenant uuid.UUID) ([]Account, error) {
	return s.repo.List(ctx, tenant)
}

// Tree groups the tenant's accounts by parent for hierarchical rendering.
func (s *Service) Tree(ctx context.Context, tenant uuid.UUID) (map[int64][]Account, []Account, error) {
	all, err := s.repo.List(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}
	children := make(map[int64][]Account)
	var roots []Account
	for _, a := range all {
		if a.ParentID == nil {
			roots = append(roots, a)
			continue
		}
		children[*a.ParentID] = append(children[*a.ParentID], a)
	}
	return children, roots, nil
}

func (s *Service) record(ctx context.Context, tenant uuid.UUID, actor int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		TenantID: tenant,
		ActorID:  actor,
		Action:   action,
		Entity:   "gl_account",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
