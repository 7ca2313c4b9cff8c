package utils

import (
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem wraps cached data with its expiry time
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// TTLCache is a size-bounded LRU cache whose entries also expire
type TTLCache struct {
	lruCache *lru.Cache[string, CacheItem]
	ttl      time.Duration
	now      func() time.Time
}

// NewTTLCache creates a cache holding at most size entries for ttl each
func NewTTLCache(size int, ttl time.Duration) *TTLCache {
	if size <= 0 {
		size = 128
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		log.Fatalf("❌ Failed to create LRU cache: %v", err)
	}
	return &TTLCache{lruCache: l, ttl: ttl, now: time.Now}
}

// Set stores data under key
func (c *TTLCache) Set(key string, data interface{}) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.now().Add(c.ttl),
	})
}

// Get returns the cached data, or nil when missing or expired
func (c *TTLCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if c.now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

func (c *TTLCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// Purge drops every entry
func (c *TTLCache) Purge() {
	c.lruCache.Purge()
}

func (c *TTLCache) Len() int {
	return c.lruCache.Len()
}
