package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

// TestLRUCache_Eviction tests least-recently-used eviction
func TestLRUCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[string](2)

	assert.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	assert.NoError(t, c.Set(ctx, "b", "2", time.Minute))

	// Touch a so b becomes the eviction candidate
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)

	assert.NoError(t, c.Set(ctx, "c", "3", time.Minute))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	assert.NoError(t, c.Set(ctx, "a", "updated", time.Minute))
	v, _ = c.Get(ctx, "a")
	assert.Equal(t, "updated", v)

	assert.NoError(t, c.Delete(ctx, "a"))
	assert.NoError(t, c.Delete(ctx, "missing"))
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

// TestLRUCache_TTL tests expiry
func TestLRUCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](4)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	assert.NoError(t, c.Set(ctx, "k", 7, 10*time.Second))
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(11 * time.Second)
	v, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, 0, c.Len())
}

// TestLRUCache_ZeroCapacity tests that a disabled cache stores nothing
func TestLRUCache_ZeroCapacity(t *testing.T) {
	c := NewLRUCache[string](0)
	assert.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

// TestLRUCache_Recommendations tests caching ranked recommendations per learner
func TestLRUCache_Recommendations(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[[]service.RankedRecommendation](1)

	recs := []service.RankedRecommendation{
		{NodeType: service.DefaultNodeType, NodeID: "c1", PriorityScore: 0.8, Reason: "Matches your python gap"},
	}
	require.NoError(t, c.Set(ctx, "learner-1", recs, time.Minute))

	got, ok := c.Get(ctx, "learner-1")
	require.True(t, ok)
	assert.Equal(t, recs, got)

	// A second learner evicts the first at capacity one
	require.NoError(t, c.Set(ctx, "learner-2", nil, time.Minute))
	_, ok = c.Get(ctx, "learner-1")
	assert.False(t, ok)
}
