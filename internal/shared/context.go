package shared

import (
	"context"

	"github.com/google/uuid"
)

type tenantContextKey struct{}

type actorContextKey struct{}

// ContextWithTenant stores the resolved tenant id in context.
func ContextWithTenant(ctx context.Context, tenant uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext extracts the tenant id from context. The zero UUID means
// no tenant was resolved.
func TenantFromContext(ctx context.Context) uuid.UUID {
	tenant, _ := ctx.Value(tenantContextKey{}).(uuid.UUID)
	return tenant
}

// ContextWithActor stores the acting user id in context.
func ContextWithActor(ctx context.Context, actor int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor id from context.
func ActorFromContext(ctx context.Context) int64 {
	actor, _ := ctx.Value(actorContextKey{}).(int64)
	return actor
}
