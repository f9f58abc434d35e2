package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cachedIndex struct {
	index Index
	built time.Time
}

// Cache holds loaded indices for a fixed TTL. A zero TTL disables caching.
type Cache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedIndex
	sf      singleflight.Group
	now     func() time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cachedIndex),
		now:     time.Now,
	}
}

func (c *Cache) fresh(key string) (Index, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.ttl == 0 || c.now().Sub(entry.built) > c.ttl {
		return nil, false
	}
	return entry.index, true
}

// GetOrLoad returns the cached index for key, or loads it with source.
// Concurrent loads of the same key share one call.
func (c *Cache) GetOrLoad(ctx context.Context, key string, source Source) (Index, error) {
	if index, ok := c.fresh(key); ok {
		return index, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if index, ok := c.fresh(key); ok {
			return index, nil
		}
		index, err := source.Load(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[key] = cachedIndex{index: index, built: c.now()}
			c.mu.Unlock()
		}
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Index), nil
}

// Cached wraps source so its loads go through the cache under key.
func (c *Cache) Cached(key string, source Source) Source {
	return SourceFunc{
		Label: source.Name(),
		Fn: func(ctx context.Context) (Index, error) {
			return c.GetOrLoad(ctx, key, source)
		},
	}
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
