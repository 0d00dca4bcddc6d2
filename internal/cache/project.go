// Package cache provides a process-local read cache for project
// lookups on the redirect hot path.
//
// Entries carry an explicit TTL and the cache is capacity-bounded; it
// is invalidated on every project write. In a multi-instance
// deployment each instance holds its own copy, so a stale window of up
// to the TTL is accepted.
package cache

import (
	"sync"
	"time"

	"github.com/splitroute/splitroute/internal/model"
)

const (
	// DefaultTTL is how long a cached project stays fresh.
	DefaultTTL = 30 * time.Second

	// DefaultMaxEntries bounds the cache size.
	DefaultMaxEntries = 10000
)

type entry struct {
	project   *model.Project
	expiresAt time.Time
}

// ProjectCache is a bounded TTL cache keyed by short code.
type ProjectCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a ProjectCache. Zero ttl or maxEntries fall back to the
// package defaults.
func New(ttl time.Duration, maxEntries int) *ProjectCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ProjectCache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached project for code, or nil on miss or expiry.
func (c *ProjectCache) Get(code string) *model.Project {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[code]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, code)
		return nil
	}
	return e.project
}

// Set stores a project under its code. When the cache is full an
// arbitrary expired entry is reclaimed first; if none is expired the
// new entry is dropped rather than growing past the bound.
func (c *ProjectCache) Set(code string, project *model.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[code]; !ok && len(c.entries) >= c.maxEntries {
		if !c.evictExpiredLocked() {
			return
		}
	}
	c.entries[code] = entry{project: project, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate removes a project from the cache. Called on every write.
func (c *ProjectCache) Invalidate(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, code)
}

// Len returns the number of entries, expired or not.
func (c *ProjectCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictExpiredLocked removes one expired entry, reporting success.
func (c *ProjectCache) evictExpiredLocked() bool {
	now := c.now()
	for code, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, code)
			return true
		}
	}
	return false
}
