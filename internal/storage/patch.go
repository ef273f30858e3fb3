package storage

import (
	"fmt"
	"time"

	"patchfs/internal/common"
	"patchfs/internal/vfs"
)

// FileStatus is what a patch does to a single file
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusDeleted  FileStatus = "deleted"
	StatusModified FileStatus = "modified"
)

// PatchFile is one file touched by a patch. Content is empty for deleted
// files and may be left out when listing a patch.
type PatchFile struct {
	Path    string
	Status  FileStatus
	Content []byte
}

// Patch is a stored set of file changes relative to a host tree
type Patch struct {
	ID          string
	Version     string
	Description string
	CreatedAt   time.Time
	Files       []PatchFile
}

// FileSets splits the patch files by status
func (p *Patch) FileSets() vfs.FileSets {
	var sets vfs.FileSets
	for _, f := range p.Files {
		switch f.Status {
		case StatusAdded:
			sets.Added = append(sets.Added, f.Path)
		case StatusDeleted:
			sets.Deleted = append(sets.Deleted, f.Path)
		case StatusModified:
			sets.Modified = append(sets.Modified, f.Path)
		}
	}
	return sets
}

// Validate checks that the patch can be stored: it needs an id and a
// version, and every file path must be a unique file (not directory) path
// with a known status.
func (p *Patch) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("patch has no id: %w", common.ErrInvalidPath)
	}
	if p.Version == "" {
		return fmt.Errorf("patch %s has no version: %w", p.ID, common.ErrInvalidState)
	}
	seen := make(map[string]bool, len(p.Files))
	for _, f := range p.Files {
		if f.Path == "" || vfs.IsDirPath(f.Path) {
			return fmt.Errorf("patch %s: %q is not a file path: %w", p.ID, f.Path, common.ErrInvalidPath)
		}
		if seen[f.Path] {
			return fmt.Errorf("patch %s: %q listed twice: %w", p.ID, f.Path, common.ErrInvalidPath)
		}
		seen[f.Path] = true
		switch f.Status {
		case StatusAdded, StatusDeleted, StatusModified:
		default:
			return fmt.Errorf("patch %s: %q has unknown status %q: %w", p.ID, f.Path, f.Status, common.ErrInvalidState)
		}
	}
	return nil
}
