// Copyright 2026 © The CEO Bot Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache memoizes answers by exact question text for a bounded time.
// Entries are scoped to a dataset generation so a reload never serves
// answers computed against old data.
package cache

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults.
const (
	DefaultSize = 1024
	DefaultTTL  = time.Hour
)

// Cache is a size- and TTL-bounded map from question to V. A nil *Cache
// never hits and ignores writes.
type Cache[V any] struct {
	lru        *expirable.LRU[string, V]
	generation atomic.Uint64
	hits       atomic.Uint64
	misses     atomic.Uint64
}

// New creates a cache holding up to size entries for ttl each.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Key normalizes question so trivial differences in case and spacing hit
// the same entry.
func Key(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

func key(gen uint64, question string) string {
	var b strings.Builder
	b.WriteString(Key(question))
	b.WriteByte(0)
	b.WriteString(strconv.FormatUint(gen, 16))
	return b.String()
}

// Generation is the current dataset generation. It starts at 0 and grows
// with every Invalidate.
func (c *Cache[V]) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.generation.Load()
}

// Get returns the cached value for question in the current generation.
func (c *Cache[V]) Get(question string) (V, bool) {
	return c.GetAt(c.Generation(), question)
}

// GetAt returns the value cached for question in generation gen.
func (c *Cache[V]) GetAt(gen uint64, question string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	v, ok := c.lru.Get(key(gen, question))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores v for question in the current generation.
func (c *Cache[V]) Put(question string, v V) {
	c.PutAt(c.Generation(), question, v)
}

// PutAt stores v for question as computed in generation gen. Values of a
// generation that has since been invalidated are dropped.
func (c *Cache[V]) PutAt(gen uint64, question string, v V) {
	if c == nil || gen != c.generation.Load() {
		return
	}
	c.lru.Add(key(gen, question), v)
}

// Invalidate drops every entry, typically after a dataset reload, and
// returns the new generation.
func (c *Cache[V]) Invalidate() uint64 {
	if c == nil {
		return 0
	}
	gen := c.generation.Add(1)
	c.lru.Purge()
	return gen
}

// Len is the number of live entries.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats reports hits and misses since creation.
func (c *Cache[V]) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
