package detect

import "sync"

// SelectorCache caches detection results per host
type SelectorCache struct {
	mu    sync.RWMutex
	cache map[string]Result
}

// NewSelectorCache creates a new selector cache
func NewSelectorCache() *SelectorCache {
	return &SelectorCache{
		cache: make(map[string]Result),
	}
}

// Get retrieves a cached detection result for a host
func (c *SelectorCache) Get(host string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.cache[host]
	return result, ok
}

// Set stores a detection result for a host
func (c *SelectorCache) Set(host string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[host] = result
}

// Size returns the number of cached entries
func (c *SelectorCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
