/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cache is a fixed-capacity LRU cache with per-entry expiry.
//
// Recency order is a doubly linked list threaded through the entry map by key, so every
// operation is O(1) except Sweep and an Add that finds the cache full.
package cache

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned by Take when the key was present but past its expiry.
	ErrExpired = errors.New("expired")

	// ErrFull is returned by Add when every slot holds a live entry.
	ErrFull = errors.New("cache full")
)

type dropped struct {
	key string
	e   *entry
}

type entry struct {
	value     interface{}
	expiresAt time.Time
	// neighbours in recency order; "" marks the end of the list.
	prev, next string
}

// expired reports whether now is strictly past the entry's expiry; an entry is still live at
// the instant it expires.
func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Option configures a Cache.
type Option func(c *Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithEvictCallback is called, outside the lock, for every entry dropped by capacity or expiry.
func WithEvictCallback(fn func(key string, value interface{})) Option {
	return func(c *Cache) {
		c.onEvict = fn
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(key string, value interface{})
	entries  map[string]*entry
	// head is the most recently used key, tail the least.
	head, tail string
}

// New returns a cache holding at most capacity entries. Entries expire ttl after they are
// stored; a zero ttl disables expiry.
func New(capacity int, ttl time.Duration, opts ...Option) *Cache {
	if capacity < 1 {
		capacity = 1
	}

	c := &Cache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*entry, capacity),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Put stores value under key with the default ttl.
func (c *Cache) Put(key string, value interface{}) error {
	return c.PutWithTTL(key, value, c.ttl)
}

// PutWithTTL stores value under key, replacing any previous value, and evicts the least
// recently used entry when the cache is full.
func (c *Cache) PutWithTTL(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key is mandatory")
	}

	var expiresAt time.Time

	c.mu.Lock()

	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(key, e)
		c.mu.Unlock()

		return nil
	}

	var evictedKey string

	var evicted *entry

	if len(c.entries) >= c.capacity {
		evictedKey = c.tail
		evicted = c.remove(evictedKey)
	}

	e := &entry{value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.pushFront(key, e)

	c.mu.Unlock()

	if evicted != nil && c.onEvict != nil {
		c.onEvict(evictedKey, evicted.value)
	}

	return nil
}

// Add stores value under key with the default ttl without evicting live entries.
func (c *Cache) Add(key string, value interface{}) error {
	return c.AddWithTTL(key, value, c.ttl)
}

// AddWithTTL stores value under key like PutWithTTL, but when the cache is full it only makes
// room by dropping expired entries. If every entry is live, it returns ErrFull.
func (c *Cache) AddWithTTL(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key is mandatory")
	}

	c.mu.Lock()

	now := c.now()

	var expiresAt time.Time

	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(key, e)
		c.mu.Unlock()

		return nil
	}

	var out []dropped

	if len(c.entries) >= c.capacity {
		out = c.dropExpired(now)
	}

	full := len(c.entries) >= c.capacity
	if !full {
		e := &entry{value: value, expiresAt: expiresAt}
		c.entries[key] = e
		c.pushFront(key, e)
	}

	c.mu.Unlock()

	for _, d := range out {
		c.evicted(d.key, d.e)
	}

	if full {
		return ErrFull
	}

	return nil
}

// Get returns the value under key and marks it most recently used.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()

	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()

		return nil, false
	}

	if e.expired(c.now()) {
		c.remove(key)
		c.mu.Unlock()
		c.evicted(key, e)

		return nil, false
	}

	c.moveToFront(key, e)
	c.mu.Unlock()

	return e.value, true
}

// Peek returns the value under key without changing recency.
func (c *Cache) Peek(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		return nil, false
	}

	return e.value, true
}

// Take atomically removes and returns the value under key. At most one of any number of
// concurrent callers receives the value.
func (c *Cache) Take(key string) (interface{}, error) {
	c.mu.Lock()

	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()

		return nil, ErrNotFound
	}

	c.remove(key)

	if e.expired(c.now()) {
		c.mu.Unlock()
		c.evicted(key, e)

		return nil, ErrExpired
	}

	c.mu.Unlock()

	return e.value, nil
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.remove(key) != nil
}

// Sweep drops every entry expired at now and returns how many were dropped.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	out := c.dropExpired(now)
	c.mu.Unlock()

	for _, d := range out {
		c.evicted(d.key, d.e)
	}

	return len(out)
}

// dropExpired must be called with the lock held; callbacks are left to the caller.
func (c *Cache) dropExpired(now time.Time) []dropped {
	var out []dropped

	for key := c.tail; key != ""; {
		e := c.entries[key]
		prev := e.prev

		if e.expired(now) {
			c.remove(key)

			out = append(out, dropped{key: key, e: e})
		}

		key = prev
	}

	return out
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Keys returns the stored keys from most to least recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))

	for key := c.head; key != ""; key = c.entries[key].next {
		keys = append(keys, key)
	}

	return keys
}

func (c *Cache) evicted(key string, e *entry) {
	if c.onEvict != nil {
		c.onEvict(key, e.value)
	}
}

func (c *Cache) pushFront(key string, e *entry) {
	e.prev = ""
	e.next = c.head

	if c.head != "" {
		c.entries[c.head].prev = key
	}

	c.head = key

	if c.tail == "" {
		c.tail = key
	}
}

func (c *Cache) unlink(key string, e *entry) {
	if e.prev != "" {
		c.entries[e.prev].next = e.next
	} else {
		c.head = e.next
	}

	if e.next != "" {
		c.entries[e.next].prev = e.prev
	} else {
		c.tail = e.prev
	}

	e.prev, e.next = "", ""
}

func (c *Cache) moveToFront(key string, e *entry) {
	if c.head == key {
		return
	}

	c.unlink(key, e)
	c.pushFront(key, e)
}

func (c *Cache) remove(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}

	c.unlink(key, e)
	delete(c.entries, key)

	return e
}
