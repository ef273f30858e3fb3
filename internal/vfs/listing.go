package vfs

import (
	"slices"
	"strings"
)

// ChildSets are the immediate children of one directory that a patch
// adds, deletes or modifies. Names are relative to the directory and
// subdirectories keep their trailing Separator.
type ChildSets struct {
	Added []string
	// Deleted only ever holds files. See ComputeChildSets.
	Deleted  []string
	Modified []string
}

// Empty reports whether the patch leaves the directory untouched
func (cs ChildSets) Empty() bool {
	return len(cs.Added)+len(cs.Deleted)+len(cs.Modified) == 0
}

// ComputeChildSets projects the flat patch file sets onto dir, which
// must be a directory path.
//
// A patch applies to files only and cannot delete a directory. A
// subdirectory that shows up among the deleted children therefore still
// exists; it is listed as modified because its own listing changed.
func ComputeChildSets(dir string, sets FileSets) ChildSets {
	added := childrenInDir(sets.Added, dir)
	deleted := childrenInDir(sets.Deleted, dir)
	modified := childrenInDir(sets.Modified, dir)

	var deletedFiles []string
	for _, child := range deleted {
		if strings.HasSuffix(child, Separator) {
			modified = append(modified, child)
		} else {
			deletedFiles = append(deletedFiles, child)
		}
	}

	return ChildSets{
		Added:    uniqueSorted(added),
		Deleted:  uniqueSorted(deletedFiles),
		Modified: uniqueSorted(modified),
	}
}

// childrenInDir maps every path under dir to the immediate child of dir
// that contains it.
func childrenInDir(paths []string, dir string) []string {
	var children []string
	for _, p := range paths {
		if !strings.HasPrefix(p, dir) || len(p) == len(dir) {
			continue
		}
		child := p[len(dir):]
		if i := strings.Index(child, Separator); i >= 0 {
			child = child[:i+1]
		}
		children = append(children, child)
	}
	return children
}

func uniqueSorted(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// PatchListing applies cs to the host listing of dir. exists is false
// when the host store has no such directory; the directory then exists
// only if the patch adds something to it, and its listing is exactly the
// added children.
//
// Host entries keep their order; added children that the host did not
// have are appended in sorted order.
func PatchListing(dir string, original []string, exists bool, cs ChildSets) ([]string, error) {
	if !exists {
		if len(cs.Added) == 0 {
			return nil, notFoundf("directory %s not found in the patch", dir)
		}
		return slices.Clone(cs.Added), nil
	}

	result := make([]string, 0, len(original)+len(cs.Added))
	seen := make(map[string]bool, len(original)+len(cs.Added))
	for _, name := range original {
		if seen[name] || slices.Contains(cs.Deleted, name) {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	for _, name := range cs.Added {
		if seen[name] || slices.Contains(cs.Deleted, name) {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	return result, nil
}
