package vfs

import (
	"maps"
	"strings"

	"patchfs/internal/future"
)

// Separator terminates directory paths. A path ending in Separator is a
// directory; any other path is a file.
const Separator = "/"

// StatInfo is the version information of a file or directory.
// ChildVersions is nil for files. For directories it maps every
// immediate child name (subdirectories keep their trailing Separator)
// to the child's version.
type StatInfo struct {
	Version       string            `yaml:"version"`
	ChildVersions map[string]string `yaml:"child_versions,omitempty"`
}

// IsDir reports whether the stat describes a directory
func (s *StatInfo) IsDir() bool {
	return s.ChildVersions != nil
}

// Clone returns a deep copy. Stores may cache and share StatInfo
// instances, so any mutation must happen on a clone.
func (s *StatInfo) Clone() *StatInfo {
	c := &StatInfo{Version: s.Version}
	if s.ChildVersions != nil {
		c.ChildVersions = maps.Clone(s.ChildVersions)
	}
	return c
}

// Content is the result of reading a single path: the bytes of a file,
// or the child names of a directory.
type Content struct {
	Data     []byte
	Children []string
}

// FileSets describes a patch relative to the host store. Entries are
// always file paths: a patch is a set of file diffs and has no way to
// name a directory.
type FileSets struct {
	Added    []string
	Deleted  []string
	Modified []string
}

// HostStore is a read-only file store. Implementations report missing
// paths with an error wrapping common.ErrNotFound.
type HostStore interface {
	// Read starts reading all paths and returns a future for the
	// path -> content mapping.
	Read(paths []string) *future.Future[map[string]Content]

	// ReadSingle reads one path synchronously.
	ReadSingle(path string) (Content, error)

	// Stat returns version information for path.
	Stat(path string) (*StatInfo, error)
}

// Patcher provides a patch: which files it touches, their patched
// contents and a version token identifying the patch.
type Patcher interface {
	PatchedFiles() FileSets

	// Apply returns the patched contents of paths, which must all be
	// added or modified files. host is the store the patch applies to.
	Apply(paths []string, host HostStore) *future.Future[map[string]Content]

	// Version returns the patch's version token, or false if the patch
	// is unversioned.
	Version() (string, bool)
}

// IsDirPath reports whether path names a directory
func IsDirPath(path string) bool {
	return path == "" || strings.HasSuffix(path, Separator)
}
