package vfs

import "strings"

// PatchStat returns a copy of the directory stat host with the patch
// applied: the directory and every added or modified child get version,
// deleted children are dropped. host itself is never modified.
func PatchStat(host *StatInfo, version string, cs ChildSets) (*StatInfo, error) {
	if cs.Empty() {
		return nil, invalidStatef("patching stat %s with no changes", host.Version)
	}
	if !host.IsDir() {
		return nil, invalidStatef("patching stat %s with no child versions", host.Version)
	}

	patched := host.Clone()
	patched.Version = version
	for _, child := range cs.Added {
		patched.ChildVersions[child] = version
	}
	for _, child := range cs.Modified {
		patched.ChildVersions[child] = version
	}
	for _, child := range cs.Deleted {
		delete(patched.ChildVersions, child)
	}
	return patched, nil
}

// newDirStat synthesizes the stat of a directory that only exists
// because the patch adds files under it.
func newDirStat(version string, cs ChildSets) *StatInfo {
	children := make(map[string]string, len(cs.Added)+len(cs.Modified))
	for _, child := range cs.Added {
		children[child] = version
	}
	for _, child := range cs.Modified {
		children[child] = version
	}
	return &StatInfo{Version: version, ChildVersions: children}
}

// splitPath splits path into its directory (with trailing Separator) and
// file name. The file name is empty for directory paths. Paths without a
// Separator live in the root directory "".
func splitPath(path string) (dir, name string) {
	i := strings.LastIndex(path, Separator)
	if i < 0 {
		return "", path
	}
	return path[:i+1], path[i+1:]
}
