package testutil

import (
	"context"
	"testing"

	"github.com/quantmind-br/whyml-go/internal/cache"
	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/stretchr/testify/require"
)

// NewBadgerCache creates an in-memory BadgerDB cache for testing
func NewBadgerCache(t *testing.T) *cache.BadgerCache {
	t.Helper()

	c, err := cache.NewBadgerCache(cache.Options{
		InMemory: true,
		Logger:   false,
		Compress: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		c.Close()
	})

	return c
}

// VerifyCacheEntry verifies a cache entry was stored correctly
func VerifyCacheEntry(t *testing.T, c domain.Cache, key, expectedValue string) {
	t.Helper()

	result, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, expectedValue, string(result))
}
