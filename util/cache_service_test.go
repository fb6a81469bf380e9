package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

func newTestCache(t *testing.T, ttl time.Duration) *PolicyCache {
	t.Helper()
	cache, err := NewPolicyCache(ttl)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func TestPolicyCache(t *testing.T) {
	policies := []model.Policy{
		{ID: "1", Name: "first", Effect: model.EffectAllow},
		{ID: "2", Name: "second", Effect: model.EffectDeny},
	}

	t.Run("SetThenGet", func(t *testing.T) {
		cache := newTestCache(t, time.Minute)

		require.True(t, cache.Set(policies, cache.Generation()))
		got, ok := cache.Get()

		require.True(t, ok)
		assert.Equal(t, policies, got)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		cache := newTestCache(t, time.Minute)
		require.True(t, cache.Set(policies, cache.Generation()))

		got, _ := cache.Get()
		got[0].Name = "mutated"

		again, _ := cache.Get()
		assert.Equal(t, "first", again[0].Name)
	})

	t.Run("InvalidateDropsEntry", func(t *testing.T) {
		cache := newTestCache(t, time.Minute)
		require.True(t, cache.Set(policies, cache.Generation()))

		cache.Invalidate()

		_, ok := cache.Get()
		assert.False(t, ok)
	})

	t.Run("StaleGenerationIsDiscarded", func(t *testing.T) {
		cache := newTestCache(t, time.Minute)
		generation := cache.Generation()

		cache.Invalidate()

		assert.False(t, cache.Set(policies, generation))
		_, ok := cache.Get()
		assert.False(t, ok)
	})

	t.Run("EntryExpires", func(t *testing.T) {
		cache := newTestCache(t, 50*time.Millisecond)
		require.True(t, cache.Set(policies, cache.Generation()))

		assert.Eventually(t, func() bool {
			_, ok := cache.Get()
			return !ok
		}, 2*time.Second, 20*time.Millisecond)
	})
}
