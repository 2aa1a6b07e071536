// Package cache provides a process-wide TTL cache for short-lived tokens,
// such as report-download tokens handed out by the admin surface.
package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const evictionInterval = time.Minute

type entry struct {
	value     any
	expiresAt time.Time
}

// TokenCache maps random tokens to values with explicit TTL eviction. It
// replaces ad-hoc global maps: every entry expires, and a background loop
// evicts stale entries so abandoned tokens do not accumulate.
type TokenCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewTokenCache creates a cache whose entries live for ttl, and starts the
// eviction loop.
func NewTokenCache(ttl time.Duration) *TokenCache {
	c := &TokenCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.evictLoop()
	return c
}

// Put stores a value under a fresh random token and returns the token.
func (c *TokenCache) Put(value any) string {
	token := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
	return token
}

// Get returns the value for a token, or false if the token is unknown or
// expired. Expired entries are removed on access.
func (c *TokenCache) Get(token string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, token)
		return nil, false
	}
	return e.value, true
}

// Take returns the value for a token and removes it in the same critical
// section, so a single-use token can only ever be redeemed once even under
// concurrent requests. Returns false for unknown or expired tokens.
func (c *TokenCache) Take(token string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	delete(c.entries, token)
	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Delete removes a token, typically after single use.
func (c *TokenCache) Delete(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

// Len returns the number of live entries.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the eviction loop.
func (c *TokenCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *TokenCache) evictLoop() {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for token, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, token)
				}
			}
			c.mu.Unlock()
		}
	}
}
