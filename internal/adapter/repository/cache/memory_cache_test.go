package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueryCache_ItemLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryQueryCache()

	_, ok, err := c.GetLocation(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	loc := &domain.Location{ID: "a", Title: "first", Images: []string{"1.jpg"}}
	require.NoError(t, c.SetLocation(ctx, loc, time.Minute))

	got, ok, err := c.GetLocation(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", got.Title)

	got.Images[0] = "mutated"
	again, _, _ := c.GetLocation(ctx, "a")
	assert.Equal(t, "1.jpg", again.Images[0], "cached value must not alias returned copies")

	require.NoError(t, c.InvalidateLocation(ctx, "a"))
	_, ok, _ = c.GetLocation(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryQueryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryQueryCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetList(ctx, "k", []*domain.Location{{ID: "a"}}, time.Second))
	_, ok, _ := c.GetList(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = c.GetList(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryQueryCache_InvalidateLists(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryQueryCache()
	require.NoError(t, c.SetList(ctx, "k1", []*domain.Location{{ID: "a"}}, 0))
	require.NoError(t, c.SetList(ctx, "k2", nil, 0))
	require.NoError(t, c.SetLocation(ctx, &domain.Location{ID: "a"}, 0))

	require.NoError(t, c.InvalidateLists(ctx))

	_, ok1, _ := c.GetList(ctx, "k1")
	_, ok2, _ := c.GetList(ctx, "k2")
	_, okItem, _ := c.GetLocation(ctx, "a")
	assert.False(t, ok1)
	assert.False(t, ok2)
	assert.True(t, okItem, "items are invalidated separately")
}
