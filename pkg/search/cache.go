package search

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// responseCache memoizes successful replies by cache key.
type responseCache interface {
	Get(key string) (*Response, bool)
	Add(key string, resp *Response)
	Purge()
	Len() int
}

// newResponseCache returns an unbounded cache, or an LRU holding at most
// maxEntries replies when maxEntries is positive.
func newResponseCache(maxEntries int) responseCache {
	if maxEntries > 0 {
		c, err := lru.New[string, *Response](maxEntries)
		if err == nil {
			return lruCache{c}
		}
	}
	return &mapCache{entries: make(map[string]*Response)}
}

type mapCache struct {
	mu      sync.RWMutex
	entries map[string]*Response
}

func (c *mapCache) Get(key string) (*Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *mapCache) Add(key string, resp *Response) {
	c.mu.Lock()
	c.entries[key] = resp
	c.mu.Unlock()
}

func (c *mapCache) Purge() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

func (c *mapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type lruCache struct {
	*lru.Cache[string, *Response]
}

func (c lruCache) Add(key string, resp *Response) {
	c.Cache.Add(key, resp)
}
