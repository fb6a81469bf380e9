// api/util/cache_service.go

package util

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/api/pdp/model"
)

// EnabledPoliciesKey is the single cache key for the enabled-policy set.
// Decisions use the same policy universe for every tenant.
const EnabledPoliciesKey = "policies:enabled"

// PolicyCache holds the most recently loaded enabled-policy set for a bounded
// time. Every Invalidate bumps a generation counter so that a load which
// started before a write can never publish its stale result.
type PolicyCache struct {
	cache      *ristretto.Cache
	ttl        time.Duration
	generation atomic.Uint64
	now        func() time.Time
}

func NewPolicyCache(ttl time.Duration) (*PolicyCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100,
		MaxCost:            10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create policy cache: %w", err)
	}
	return &PolicyCache{cache: cache, ttl: ttl, now: time.Now}, nil
}

// Generation returns the current invalidation generation. Loaders capture it
// before reading the store and hand it back to Set.
func (c *PolicyCache) Generation() uint64 {
	return c.generation.Load()
}

// Get returns a copy of the cached policies.
func (c *PolicyCache) Get() ([]model.Policy, bool) {
	value, found := c.cache.Get(EnabledPoliciesKey)
	if !found {
		return nil, false
	}
	entry, ok := value.(*pdp_model.PolicyCacheEntry)
	if !ok || entry.Generation != c.generation.Load() {
		return nil, false
	}
	return model.ClonePolicies(entry.Policies), true
}

// Set stores a freshly loaded policy set. It is a no-op when the cache was
// invalidated after generation was read.
func (c *PolicyCache) Set(policies []model.Policy, generation uint64) bool {
	if generation != c.generation.Load() {
		logger.Debug("Discarding policy load from an invalidated generation",
			zap.Uint64("generation", generation))
		return false
	}
	entry := &pdp_model.PolicyCacheEntry{
		Policies:   model.ClonePolicies(policies),
		LoadedAt:   c.now(),
		Generation: generation,
	}
	if !c.cache.SetWithTTL(EnabledPoliciesKey, entry, 1, c.ttl) {
		return false
	}
	c.cache.Wait()
	return true
}

// Invalidate drops the cached set. It returns once the entry is gone.
func (c *PolicyCache) Invalidate() {
	c.generation.Add(1)
	c.cache.Del(EnabledPoliciesKey)
	logger.Debug("Policy cache invalidated", zap.Uint64("generation", c.generation.Load()))
}

func (c *PolicyCache) Close() {
	c.cache.Close()
}
