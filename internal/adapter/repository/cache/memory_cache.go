package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
)

type memoryEntry struct {
	locs    []*domain.Location
	expires time.Time
}

// MemoryQueryCache is a process-local QueryCache used when Redis is disabled.
// Values are deep-copied in and out.
type MemoryQueryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	lists map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryQueryCache() *MemoryQueryCache {
	return &MemoryQueryCache{
		items: make(map[string]memoryEntry),
		lists: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (c *MemoryQueryCache) GetLocation(_ context.Context, id string) (*domain.Location, bool, error) {
	locs, ok := c.get(c.items, id)
	if !ok {
		return nil, false, nil
	}
	return locs[0], true, nil
}

func (c *MemoryQueryCache) SetLocation(_ context.Context, loc *domain.Location, ttl time.Duration) error {
	c.set(c.items, loc.ID, []*domain.Location{loc}, ttl)
	return nil
}

func (c *MemoryQueryCache) GetList(_ context.Context, key string) ([]*domain.Location, bool, error) {
	locs, ok := c.get(c.lists, key)
	return locs, ok, nil
}

func (c *MemoryQueryCache) SetList(_ context.Context, key string, locs []*domain.Location, ttl time.Duration) error {
	c.set(c.lists, key, locs, ttl)
	return nil
}

func (c *MemoryQueryCache) InvalidateLocation(_ context.Context, id string) error {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
	return nil
}

func (c *MemoryQueryCache) InvalidateLists(_ context.Context) error {
	c.mu.Lock()
	clear(c.lists)
	c.mu.Unlock()
	return nil
}

func (c *MemoryQueryCache) get(m map[string]memoryEntry, key string) ([]*domain.Location, bool) {
	c.mu.RLock()
	e, ok := m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, still := m[key]; still && cur.expires.Equal(e.expires) {
			delete(m, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return cloneAll(e.locs), true
}

func (c *MemoryQueryCache) set(m map[string]memoryEntry, key string, locs []*domain.Location, ttl time.Duration) {
	e := memoryEntry{locs: cloneAll(locs)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	m[key] = e
	c.mu.Unlock()
}

func cloneAll(in []*domain.Location) []*domain.Location {
	out := make([]*domain.Location, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}
