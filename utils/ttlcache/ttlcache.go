// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package ttlcache provides a small thread-safe cache with per-entry expiry,
// used to memoize lookups against remote geocoding and mapcode services.
package ttlcache

import (
	"sync"
	"time"
)

// Cache is a thread-safe TTL cache.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
}

type item[V any] struct {
	value  V
	expiry time.Time
}

// New creates a cache whose entries expire after ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
	}
}

// Set stores value under key, resetting its expiry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:  value,
		expiry: time.Now().Add(c.ttl),
	}
}

// Get returns the value stored under key, if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()

	if !found || time.Now().After(it.expiry) {
		var zero V

		return zero, false
	}

	return it.value, true
}

// Len returns the number of entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Prune removes expired entries.
func (c *Cache[V]) Prune() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, it := range c.items {
		if now.After(it.expiry) {
			delete(c.items, key)
		}
	}
}
