package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patchfs/internal/vfs"
)

func TestStatCacheGetSet(t *testing.T) {
	if Disabled {
		t.Skip("caching disabled via PATCHFS_CACHE=0")
	}
	t.Parallel()

	c := NewStatCache(0, 0)
	assert.Nil(t, c.Get("/a/"))

	st := &vfs.StatInfo{Version: "v1", ChildVersions: map[string]string{"b": "1"}}
	c.Set("/a/", st)
	assert.Same(t, st, c.Get("/a/"), "cache hands out the stored instance")
	assert.Equal(t, 1, c.Size())
}

func TestStatCacheTTL(t *testing.T) {
	if Disabled {
		t.Skip("caching disabled via PATCHFS_CACHE=0")
	}
	t.Parallel()

	c := NewStatCache(20*time.Millisecond, 0)
	c.Set("/f", &vfs.StatInfo{Version: "v"})
	require.NotNil(t, c.Get("/f"))

	time.Sleep(40 * time.Millisecond)
	assert.Nil(t, c.Get("/f"))
}

func TestStatCacheMaxSize(t *testing.T) {
	if Disabled {
		t.Skip("caching disabled via PATCHFS_CACHE=0")
	}
	t.Parallel()

	c := NewStatCache(0, 2)
	c.Set("/1", &vfs.StatInfo{Version: "1"})
	c.Set("/2", &vfs.StatInfo{Version: "2"})
	c.Set("/3", &vfs.StatInfo{Version: "3"})
	assert.Nil(t, c.Get("/3"), "new entries are dropped at capacity")

	c.Set("/1", &vfs.StatInfo{Version: "1b"})
	assert.Equal(t, "1b", c.Get("/1").Version, "existing entries are still refreshed")
	assert.Equal(t, 2, c.Stats().Size)
	assert.Equal(t, 2, c.Stats().MaxSize)
}

func TestStatCacheInvalidation(t *testing.T) {
	if Disabled {
		t.Skip("caching disabled via PATCHFS_CACHE=0")
	}
	t.Parallel()

	fill := func() *StatCache {
		c := NewStatCache(time.Minute, 0)
		for _, p := range []string{"/a/", "/a/b.txt", "/a/sub/", "/a/sub/x", "/ab.txt", "/top"} {
			c.Set(p, &vfs.StatInfo{Version: p})
		}
		return c
	}

	t.Run("path", func(t *testing.T) {
		c := fill()
		c.InvalidatePath("/a/b.txt")
		assert.Nil(t, c.Get("/a/b.txt"))
		assert.NotNil(t, c.Get("/a/"))
	})

	t.Run("prefix", func(t *testing.T) {
		c := fill()
		c.InvalidatePrefix("/a")
		for _, p := range []string{"/a/", "/a/b.txt", "/a/sub/", "/a/sub/x"} {
			assert.Nil(t, c.Get(p), p)
		}
		assert.NotNil(t, c.Get("/ab.txt"))
		assert.NotNil(t, c.Get("/top"))
	})

	t.Run("all", func(t *testing.T) {
		c := fill()
		c.Invalidate()
		assert.Zero(t, c.Size())
	})
}
