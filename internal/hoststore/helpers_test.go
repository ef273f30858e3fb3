package hoststore

import (
	"fmt"
	"sync/atomic"

	"patchfs/internal/common"
	"patchfs/internal/future"
	"patchfs/internal/vfs"
)

type stubPatcher struct {
	sets    vfs.FileSets
	content map[string]string
}

func (p stubPatcher) PatchedFiles() vfs.FileSets { return p.sets }

func (p stubPatcher) Version() (string, bool) { return "stub", true }

func (p stubPatcher) Apply(paths []string, _ vfs.HostStore) *future.Future[map[string]vfs.Content] {
	result := make(map[string]vfs.Content, len(paths))
	for _, path := range paths {
		data, ok := p.content[path]
		if !ok {
			return future.Fail[map[string]vfs.Content](fmt.Errorf("%s: %w", path, common.ErrNotFound))
		}
		result[path] = vfs.Content{Data: []byte(data)}
	}
	return future.Value(result)
}

// countingStore counts Stat calls on the wrapped store
type countingStore struct {
	vfs.HostStore
	stats atomic.Int32
}

func (c *countingStore) Stat(path string) (*vfs.StatInfo, error) {
	c.stats.Add(1)
	return c.HostStore.Stat(path)
}
