package perffarm

import (
	"sync"
	"time"
)

// Keys for reference data held in the environment cache.
const (
	PlantsCacheKey   = "plants"
	TestsCacheKey    = "performance_tests"
	BranchesCacheKey = "branches"
)

// EnvironmentCache provides thread-safe, in-memory access to reference data
// persisted in the database. Entries expire after the cache's TTL.
type EnvironmentCache interface {
	// PutNew adds a new (key, value) pair to the cache, returning false
	// if a live entry already exists.
	PutNew(string, interface{}) bool
	// Put adds or replaces the value for the key.
	Put(string, interface{})
	// Get returns the value of the given key.
	Get(string) (interface{}, bool)
	// Delete removes the given key from the cache.
	Delete(string)
	// Invalidate removes every entry.
	Invalidate()
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

type envCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	cache map[string]cacheEntry
	now   func() time.Time
}

func newEnvironmentCache(ttl time.Duration) *envCache {
	return &envCache{
		ttl:   ttl,
		cache: map[string]cacheEntry{},
		now:   time.Now,
	}
}

func (c *envCache) entry(value interface{}) cacheEntry {
	e := cacheEntry{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	return e
}

func (c *envCache) live(e cacheEntry) bool {
	return e.expires.IsZero() || c.now().Before(e.expires)
}

// PutNew adds a new value to the cache with the given key name, returning true
// on success. If a live entry already exists, this noops and returns false.
func (c *envCache) PutNew(key string, value interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok && c.live(e) {
		return false
	}

	c.cache[key] = c.entry(value)
	return true
}

func (c *envCache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = c.entry(value)
}

// Get returns the value of key and true if a live entry exists. Otherwise, nil
// and false are returned.
func (c *envCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.cache[key]
	if !ok || !c.live(e) {
		return nil, false
	}

	return e.value, true
}

func (c *envCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
}

func (c *envCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = map[string]cacheEntry{}
}
