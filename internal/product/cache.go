package product

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/JakeFAU/binbuddy/internal/domain"
)

const defaultCacheEntries = 512

// memoryCache is a bounded LRU of products keyed by barcode.
type memoryCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func newMemoryCache(maxEntries int) *memoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &memoryCache{lru: lru.New(maxEntries)}
}

func (c *memoryCache) get(barcode string) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(barcode)
	if !ok {
		return domain.Product{}, false
	}
	return v.(domain.Product), true
}

func (c *memoryCache) put(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(p.Barcode, p)
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
