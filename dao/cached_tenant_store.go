// api/dao/cached_tenant_store.go
package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// CachedTenantStore reads tenants through Redis. Cache failures fall through
// to the wrapped store; only the store decides whether a tenant exists.
type CachedTenantStore struct {
	next   TenantStore
	client *redis.Client
	ttl    time.Duration
}

func NewCachedTenantStore(next TenantStore, client *redis.Client, ttl time.Duration) *CachedTenantStore {
	return &CachedTenantStore{next: next, client: client, ttl: ttl}
}

func (s *CachedTenantStore) FindActiveTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	return s.cached(ctx, "slug", slug, s.next.FindActiveTenantBySlug)
}

func (s *CachedTenantStore) FindActiveTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	return s.cached(ctx, "id", id, s.next.FindActiveTenantByID)
}

func (s *CachedTenantStore) FindActiveTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return s.cached(ctx, "domain", domain, s.next.FindActiveTenantByDomain)
}

func (s *CachedTenantStore) cached(ctx context.Context, kind, value string,
	load func(context.Context, string) (*model.Tenant, error)) (*model.Tenant, error) {
	key := fmt.Sprintf("tenant:%s:%s", kind, value)

	if tenant, err := s.get(ctx, key); err != nil {
		logger.Warn("Tenant cache read failed", zap.Error(err), zap.String("key", key))
	} else if tenant != nil {
		return tenant, nil
	}

	tenant, err := load(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := s.set(ctx, key, tenant); err != nil {
		logger.Warn("Tenant cache write failed", zap.Error(err), zap.String("key", key))
	}
	return tenant, nil
}

func (s *CachedTenantStore) get(ctx context.Context, key string) (*model.Tenant, error) {
	tenantJSON, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		logger.Debug("Tenant not found in cache", zap.String("key", key))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get tenant from cache: %w", err)
	}

	var tenant model.Tenant
	if err := json.Unmarshal([]byte(tenantJSON), &tenant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tenant: %w", err)
	}
	if !tenant.Usable() {
		return nil, nil
	}
	return &tenant, nil
}

func (s *CachedTenantStore) set(ctx context.Context, key string, tenant *model.Tenant) error {
	tenantJSON, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant: %w", err)
	}
	if err := s.client.Set(ctx, key, tenantJSON, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache tenant: %w", err)
	}
	return nil
}
