// Package patcher provides vfs.Patcher implementations: in-memory
// patches, patches loaded from the patch store, and building a patch from
// a directory of replacement files.
package patcher

import (
	"fmt"
	"slices"

	"patchfs/internal/common"
	"patchfs/internal/future"
	"patchfs/internal/storage"
	"patchfs/internal/vfs"
)

// Static is a patch held entirely in memory
type Static struct {
	sets     vfs.FileSets
	contents map[string][]byte
	version  string
}

var _ vfs.Patcher = (*Static)(nil)

// NewStatic creates a patch from file sets and the contents of the added
// and modified files. An empty version makes the patch unversioned.
func NewStatic(sets vfs.FileSets, contents map[string][]byte, version string) *Static {
	return &Static{sets: sets, contents: contents, version: version}
}

// FromPatch creates an in-memory patch from a stored patch loaded with
// its contents.
func FromPatch(p *storage.Patch) *Static {
	contents := make(map[string][]byte, len(p.Files))
	for _, f := range p.Files {
		if f.Status != storage.StatusDeleted {
			contents[f.Path] = f.Content
		}
	}
	return NewStatic(p.FileSets(), contents, p.Version)
}

// PatchedFiles returns copies of the file sets
func (p *Static) PatchedFiles() vfs.FileSets {
	return cloneSets(p.sets)
}

func (p *Static) Version() (string, bool) {
	return p.version, p.version != ""
}

// Apply returns the patched contents of paths. The result is resolved
// immediately.
func (p *Static) Apply(paths []string, _ vfs.HostStore) *future.Future[map[string]vfs.Content] {
	result := make(map[string]vfs.Content, len(paths))
	for _, path := range paths {
		data, ok := p.contents[path]
		if !ok {
			return future.Fail[map[string]vfs.Content](
				fmt.Errorf("%s is not patched: %w", path, common.ErrNotFound))
		}
		result[path] = vfs.Content{Data: slices.Clone(data)}
	}
	return future.Value(result)
}

func cloneSets(s vfs.FileSets) vfs.FileSets {
	return vfs.FileSets{
		Added:    slices.Clone(s.Added),
		Deleted:  slices.Clone(s.Deleted),
		Modified: slices.Clone(s.Modified),
	}
}
