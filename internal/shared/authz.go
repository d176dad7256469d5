package shared

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Capability names the ledger actions gated by authorization. Capabilities are
// enumerated abstractly instead of comparing role strings per action.
type Capability string

const (
	CanPost           Capability = "ledger.post"
	CanReverse        Capability = "ledger.reverse"
	CanClosePeriod    Capability = "ledger.period.close"
	CanReopenPeriod   Capability = "ledger.period.reopen"
	CanManageAccounts Capability = "ledger.accounts.manage"
	CanManageBudgets  Capability = "ledger.budgets.manage"
	CanRunAudit       Capability = "ledger.audit.run"
)

// Capabilities lists every ledger capability for grant seeding.
func Capabilities() []Capability {
	return []Capability{
		CanPost,
		CanReverse,
		CanClosePeriod,
		CanReopenPeriod,
		CanManageAccounts,
		CanManageBudgets,
		CanRunAudit,
	}
}

// Authorizer is the single capability-check interface the ledger calls before
// mutating operations. The surrounding application owns how grants are
// administered; the ledger only asks.
type Authorizer interface {
	Allow(ctx context.Context, tenant uuid.UUID, actor int64, cap Capability) error
}

// GrantAuthorizer checks capabilities against the capability_grants table.
type GrantAuthorizer struct {
	pool *pgxpool.Pool
}

// NewGrantAuthorizer constructs a GrantAuthorizer.
func NewGrantAuthorizer(pool *pgxpool.Pool) *GrantAuthorizer {
	return &GrantAuthorizer{pool: pool}
}

// Allow returns ErrForbidden when no grant exists for the actor in the tenant.
func (a *GrantAuthorizer) Allow(ctx context.Context, tenant uuid.UUID, actor int64, cap Capability) error {
	var exists bool
	err := a.pool.QueryRow(ctx,
		`SELECT true FROM capability_grants WHERE tenant_id=$1 AND actor_id=$2 AND capability=$3`,
		tenant, actor, string(cap)).Scan(&exists)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("%w: %s", ErrForbidden, cap)
		}
		return err
	}
	return nil
}

// AllowAll is an Authorizer that grants everything. Used in tests and for
// deployments that gate access entirely in the surrounding application.
type AllowAll struct{}

// Allow always succeeds.
func (AllowAll) Allow(context.Context, uuid.UUID, int64, Capability) error { return nil }
