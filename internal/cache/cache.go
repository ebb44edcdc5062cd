// Package cache holds short-lived server representations so repeated reads
// within a session avoid round-trips. Mutations and terminal jobs must
// invalidate the affected keys; the next read then reflects server state.
package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSize = 256
	defaultTTL  = 30 * time.Second
)

// Cache is a TTL'd LRU of entity payloads keyed by resource path
// ("collections", "collections/{id}", "problems/{id}"). Concurrency-safe.
type Cache struct {
	lru *expirable.LRU[string, any]
}

// New constructs a Cache. Non-positive size or ttl fall back to defaults.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Get returns the cached payload for key.
func (c *Cache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores a payload under key.
func (c *Cache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(keys ...string) {
	for _, k := range keys {
		c.lru.Remove(k)
	}
}

// InvalidatePrefix drops every key at or under prefix, so invalidating
// "collections/42" also drops "collections/42/problems".
func (c *Cache) InvalidatePrefix(prefix string) {
	for _, k := range c.lru.Keys() {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			c.lru.Remove(k)
		}
	}
}
