package patcher

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"patchfs/internal/future"
	"patchfs/internal/storage"
	"patchfs/internal/vfs"
)

// Stored is a patch kept in a patch store. File sets and version are
// loaded once; contents are fetched from the store on every Apply.
type Stored struct {
	store   *storage.PatchStore
	id      string
	sets    vfs.FileSets
	version string
}

var _ vfs.Patcher = (*Stored)(nil)

// LoadStored loads the file list of patch id from store
func LoadStored(ctx context.Context, store *storage.PatchStore, id string) (*Stored, error) {
	p, err := store.GetPatch(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load patch %s: %w", id, err)
	}
	log.Debugf("[Patcher] loaded patch %s (version=%s, files=%d)", id, p.Version, len(p.Files))
	return &Stored{
		store:   store,
		id:      id,
		sets:    p.FileSets(),
		version: p.Version,
	}, nil
}

// ID returns the patch id
func (p *Stored) ID() string {
	return p.id
}

func (p *Stored) PatchedFiles() vfs.FileSets {
	return cloneSets(p.sets)
}

func (p *Stored) Version() (string, bool) {
	return p.version, p.version != ""
}

// Apply reads the contents of paths from the store in the background
func (p *Stored) Apply(paths []string, _ vfs.HostStore) *future.Future[map[string]vfs.Content] {
	return future.Go(func() (map[string]vfs.Content, error) {
		files, err := p.store.ReadPatchFiles(context.Background(), p.id, paths)
		if err != nil {
			return nil, err
		}
		result := make(map[string]vfs.Content, len(files))
		for path, data := range files {
			result[path] = vfs.Content{Data: data}
		}
		return result, nil
	})
}
