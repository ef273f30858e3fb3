package vfs

import (
	log "github.com/sirupsen/logrus"

	"patchfs/internal/future"
)

// PatchVersionPrefix prefixes the patcher's version token to form the
// version of everything the patch touches.
const PatchVersionPrefix = "patched_"

// PatchedFS presents a host store as if a patch had been applied to it.
// Nothing is written to the host store and nothing is cached between
// calls, so a PatchedFS is safe for concurrent use as long as its
// collaborators are.
//
// PatchedFS is itself a HostStore, which allows stacking patches.
type PatchedFS struct {
	host    HostStore
	patcher Patcher
}

var _ HostStore = (*PatchedFS)(nil)

// NewPatchedFS creates an overlay of patcher on top of host
func NewPatchedFS(host HostStore, patcher Patcher) *PatchedFS {
	return &PatchedFS{host: host, patcher: patcher}
}

// Host returns the underlying host store
func (fs *PatchedFS) Host() HostStore {
	return fs.host
}

// Read returns the patched contents of paths. File paths resolve to
// their bytes, directory paths to their patched child listing.
//
// Requesting a path the patch deletes fails before any fetch starts.
// The host read and the patch application run concurrently; directory
// existence, however, is probed synchronously during this call.
func (fs *PatchedFS) Read(paths []string) *future.Future[map[string]Content] {
	sets := fs.patcher.PatchedFiles()

	deleted := toSet(sets.Deleted)
	for _, p := range paths {
		if deleted[p] {
			return future.Fail[map[string]Content](notFoundf("%s is removed by the patch", p))
		}
	}

	patchedFiles := toSet(sets.Added, sets.Modified)
	seen := make(map[string]bool, len(paths))
	var dirPaths, patchedPaths, unpatchedPaths []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		switch {
		case IsDirPath(p):
			dirPaths = append(dirPaths, p)
		case patchedFiles[p]:
			patchedPaths = append(patchedPaths, p)
		default:
			unpatchedPaths = append(unpatchedPaths, p)
		}
	}

	log.Debugf("[PatchedFS] Read: dirs=%v patched=%v unpatched=%v", dirPaths, patchedPaths, unpatchedPaths)

	rf := &readFuture{
		unpatched: fs.host.Read(unpatchedPaths),
		patched:   fs.patcher.Apply(patchedPaths, fs.host),
		sets:      sets,
	}

	dirs, err := fs.tryReadDirectories(dirPaths)
	if err != nil {
		return future.Fail[map[string]Content](err)
	}
	rf.dirs = dirs

	return future.Delegate(rf.get)
}

// tryReadDirectories reads the host listing of each directory. The patch
// file sets cannot tell whether a directory exists on the host, so each
// one is tried; a missing directory maps to nil.
func (fs *PatchedFS) tryReadDirectories(paths []string) (map[string]*Content, error) {
	dirs := make(map[string]*Content, len(paths))
	for _, p := range paths {
		c, err := fs.host.ReadSingle(p)
		if IsNotFound(err) {
			dirs[p] = nil
			continue
		}
		if err != nil {
			return nil, err
		}
		dirs[p] = &c
	}
	return dirs, nil
}

// ReadSingle reads one path through Read
func (fs *PatchedFS) ReadSingle(path string) (Content, error) {
	result, err := fs.Read([]string{path}).Get()
	if err != nil {
		return Content{}, err
	}
	c, ok := result[path]
	if !ok {
		return Content{}, notFoundf("%s", path)
	}
	return c, nil
}

// Stat returns the patched stat of path. Directories untouched by the
// patch are answered by the host store directly. The patch must be
// versioned.
func (fs *PatchedFS) Stat(path string) (*StatInfo, error) {
	version, err := fs.patchVersion()
	if err != nil {
		return nil, err
	}

	dir, name := splitPath(path)
	cs := ComputeChildSets(dir, fs.patcher.PatchedFiles())

	var stat *StatInfo
	switch {
	case len(cs.Added) > 0:
		// dir may be new, in which case the host does not know it
		hostStat, err := fs.host.Stat(dir)
		switch {
		case IsNotFound(err):
			log.Debugf("[PatchedFS] Stat: synthesizing new directory %q", dir)
			stat = newDirStat(version, cs)
		case err != nil:
			return nil, err
		default:
			if stat, err = PatchStat(hostStat, version, cs); err != nil {
				return nil, err
			}
		}
	case !cs.Empty():
		hostStat, err := fs.host.Stat(dir)
		if err != nil {
			return nil, err
		}
		if stat, err = PatchStat(hostStat, version, cs); err != nil {
			return nil, err
		}
	default:
		return fs.host.Stat(path)
	}

	if name == "" {
		return stat, nil
	}
	childVersion, ok := stat.ChildVersions[name]
	if !ok {
		return nil, notFoundf("%s was not in child versions of %q", name, dir)
	}
	return &StatInfo{Version: childVersion}, nil
}

func (fs *PatchedFS) patchVersion() (string, error) {
	version, ok := fs.patcher.Version()
	if !ok {
		return "", invalidStatef("patch has no version")
	}
	return PatchVersionPrefix + version, nil
}

func toSet(lists ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, list := range lists {
		for _, p := range list {
			set[p] = true
		}
	}
	return set
}
