package cache

import (
	"strings"
	"sync"
	"time"

	"patchfs/internal/vfs"
)

// StatCache caches stat results with TTL-based expiration.
// Supports fine-grained invalidation by path.
//
// Cached *vfs.StatInfo values are shared by every caller that hits the
// same entry and must not be mutated.
//
// Thread-safe: Uses RWMutex for concurrent access.
type StatCache struct {
	mu      sync.RWMutex
	entries map[string]*statEntry
	ttl     time.Duration
	maxSize int
}

type statEntry struct {
	stat    *vfs.StatInfo
	expires time.Time
}

var _ Invalidator = (*StatCache)(nil)

// NewStatCache creates a new stat cache.
// ttl: Time-to-live for cached entries (use 0 for no expiration)
// maxSize: Maximum number of entries (use 0 for unlimited)
func NewStatCache(ttl time.Duration, maxSize int) *StatCache {
	return &StatCache{
		entries: make(map[string]*statEntry, 256),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves the cached stat for a path.
// Returns nil if not found, expired, or caching is disabled (PATCHFS_CACHE=0).
func (c *StatCache) Get(path string) *vfs.StatInfo {
	if Disabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok {
		return nil
	}

	if c.ttl > 0 && time.Now().After(entry.expires) {
		return nil
	}

	return entry.stat
}

// Set stores the stat for a path.
// No-op if caching is disabled (PATCHFS_CACHE=0).
func (c *StatCache) Set(path string, stat *vfs.StatInfo) {
	if Disabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		// At capacity: only refresh existing entries
		if _, exists := c.entries[path]; !exists {
			return
		}
	}

	expires := time.Time{}
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}

	c.entries[path] = &statEntry{
		stat:    stat,
		expires: expires,
	}
}

// Invalidate clears all entries from the cache.
func (c *StatCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > 0 {
		c.entries = make(map[string]*statEntry, 256)
	}
}

// InvalidatePath removes a specific path from the cache.
func (c *StatCache) InvalidatePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, path)
}

// InvalidatePrefix removes all paths under a directory, including the
// directory itself.
func (c *StatCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.HasSuffix(prefix, vfs.Separator) {
		prefix += vfs.Separator
	}

	for path := range c.entries {
		if strings.HasPrefix(path, prefix) {
			delete(c.entries, path)
		}
	}
}

// Size returns the current number of entries in the cache.
func (c *StatCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StatCacheStats describes the cache configuration and fill level.
type StatCacheStats struct {
	Size    int
	MaxSize int
	TTL     time.Duration
}

// Stats returns current cache statistics.
func (c *StatCache) Stats() StatCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StatCacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		TTL:     c.ttl,
	}
}
