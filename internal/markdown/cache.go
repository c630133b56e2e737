package markdown

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCacheTTL is how long a rendered diagram stays cached.
const DefaultCacheTTL = 5 * time.Minute

// RenderCache stores rendered diagrams keyed by absolute source path.
// Implementations must be safe for concurrent use.
type RenderCache interface {
	Get(key string) (*Diagram, bool)
	Put(key string, d *Diagram)
	Evict(key string)
	Len() int
}

// TTLCache is an unbounded RenderCache whose entries expire a fixed
// duration after they were stored. Reads do not extend an entry's life.
type TTLCache struct {
	items *ttlcache.Cache[string, *Diagram]
}

// NewTTLCache returns a cache whose entries live for ttl. A non-positive ttl
// selects DefaultCacheTTL.
func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &TTLCache{items: ttlcache.New(
		ttlcache.WithTTL[string, *Diagram](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Diagram](),
	)}
}

// Get returns the diagram stored under key if it has not expired.
func (c *TTLCache) Get(key string) (*Diagram, bool) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

// Put stores d under key.
func (c *TTLCache) Put(key string, d *Diagram) {
	c.items.Set(key, d, ttlcache.DefaultTTL)
}

// Evict removes key.
func (c *TTLCache) Evict(key string) {
	c.items.Delete(key)
}

// Clear removes every entry.
func (c *TTLCache) Clear() {
	c.items.DeleteAll()
}

// Len returns the number of live entries, dropping expired ones.
func (c *TTLCache) Len() int {
	c.items.DeleteExpired()
	return c.items.Len()
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(string) (*Diagram, bool) { return nil, false }
func (NopCache) Put(string, *Diagram)        {}
func (NopCache) Evict(string)                {}
func (NopCache) Len() int                    { return 0 }
