package vfs

import (
	"maps"

	log "github.com/sirupsen/logrus"

	"patchfs/internal/future"
)

// readFuture merges the results of one PatchedFS.Read: host contents of
// unpatched files, patched contents and the eagerly read directories.
type readFuture struct {
	unpatched *future.Future[map[string]Content]
	patched   *future.Future[map[string]Content]
	// dirs holds the host listing of every requested directory, nil for
	// directories the host does not have.
	dirs map[string]*Content
	sets FileSets
}

// get blocks on both fetches and merges them. The two file sets are
// disjoint, so the merge order does not matter. The result is a fresh
// map; the host future's map is left alone.
func (f *readFuture) get() (map[string]Content, error) {
	unpatched, err := f.unpatched.Get()
	if err != nil {
		return nil, err
	}
	patched, err := f.patched.Get()
	if err != nil {
		return nil, err
	}

	result := make(map[string]Content, len(unpatched)+len(patched)+len(f.dirs))
	maps.Copy(result, unpatched)
	maps.Copy(result, patched)

	for dir, listing := range f.dirs {
		var original []string
		if listing != nil {
			original = listing.Children
		}
		cs := ComputeChildSets(dir, f.sets)
		children, err := PatchListing(dir, original, listing != nil, cs)
		if err != nil {
			return nil, err
		}
		log.Tracef("[PatchedFS] listing %q: host=%v added=%v deleted=%v -> %v", dir, original, cs.Added, cs.Deleted, children)
		result[dir] = Content{Children: children}
	}
	return result, nil
}
