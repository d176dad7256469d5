package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for report payloads. Invalidation bumps
// a per-tenant version embedded in every key, so stale entries simply expire
// rather than being scanned for and deleted.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache constructs a cache. A nil client disables caching entirely.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Invalidate bumps the tenant's report version after a post or reversal.
// Cache failures never block the mutation that triggered them.
func (c *Cache) Invalidate(ctx context.Context, tenant uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, versionKey(tenant)).Err(); err != nil && c.logger != nil {
		c.logger.Warn("report cache invalidate", slog.String("tenant", tenant.String()), slog.Any("error", err))
	}
}

// Get loads a cached payload into dest, reporting whether it was present.
func (c *Cache) Get(ctx context.Context, tenant uuid.UUID, name string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	key, err := c.key(ctx, tenant, name)
	if err != nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores a payload under the tenant's current version.
func (c *Cache) Set(ctx context.Context, tenant uuid.UUID, name string, payload any) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.key(ctx, tenant, name)
	if err != nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("report cache set", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *Cache) key(ctx context.Context, tenant uuid.UUID, name string) (string, error) {
	version, err := c.client.Get(ctx, versionKey(tenant)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("ledger:reports:%s:%d:%s", tenant, version, name), nil
}

func versionKey(tenant uuid.UUID) string {
	return fmt.Sprintf("ledger:reports:%s:version", tenant)
}
