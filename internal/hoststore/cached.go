package hoststore

import (
	"patchfs/internal/cache"
	"patchfs/internal/vfs"
)

// Cached wraps a host store and serves Stat from a StatCache. Reads pass
// straight through.
//
// Cache hits return the cached instance itself, shared with every other
// caller. vfs.PatchedFS clones before patching, so stacking an overlay on
// a Cached store is safe.
type Cached struct {
	vfs.HostStore
	stats *cache.StatCache
}

var _ vfs.HostStore = (*Cached)(nil)

// NewCached wraps store with stats
func NewCached(store vfs.HostStore, stats *cache.StatCache) *Cached {
	return &Cached{HostStore: store, stats: stats}
}

// Stat returns the cached stat of path, asking the wrapped store on a miss.
// Errors are not cached.
func (c *Cached) Stat(path string) (*vfs.StatInfo, error) {
	if st := c.stats.Get(path); st != nil {
		return st, nil
	}
	st, err := c.HostStore.Stat(path)
	if err != nil {
		return nil, err
	}
	c.stats.Set(path, st)
	return st, nil
}

// Cache returns the underlying stat cache, for invalidation
func (c *Cached) Cache() *cache.StatCache {
	return c.stats
}
