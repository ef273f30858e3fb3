package patcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	log "github.com/sirupsen/logrus"

	"patchfs/internal/common"
	"patchfs/internal/storage"
	"patchfs/internal/vfs"
)

// DirOptions describes a patch built by FromDir
type DirOptions struct {
	ID          string   // empty: assigned by the store
	Version     string   // empty: hash of the patch contents
	Description string
	Deleted     []string // host file paths the patch removes
}

// FromDir builds a patch from src, a tree of replacement files laid out
// like the host. Every file in src becomes an added file if host does not
// have it and a modified file otherwise.
func FromDir(src billy.Filesystem, host vfs.HostStore, opts DirOptions) (*storage.Patch, error) {
	p := &storage.Patch{
		ID:          opts.ID,
		Version:     opts.Version,
		Description: opts.Description,
	}

	err := util.Walk(src, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		path = filepath.ToSlash(path)

		data, err := readAll(src, path)
		if err != nil {
			return err
		}
		status, err := classify(host, path)
		if err != nil {
			return err
		}
		p.Files = append(p.Files, storage.PatchFile{Path: path, Status: status, Content: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan patch directory: %w", err)
	}

	for _, path := range opts.Deleted {
		if vfs.IsDirPath(path) {
			return nil, fmt.Errorf("cannot delete directory %s: %w", path, common.ErrInvalidPath)
		}
		if _, err := host.Stat(path); err != nil {
			return nil, fmt.Errorf("cannot delete %s: %w", path, err)
		}
		p.Files = append(p.Files, storage.PatchFile{Path: path, Status: storage.StatusDeleted})
	}

	slices.SortFunc(p.Files, func(a, b storage.PatchFile) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})

	if p.Version == "" {
		p.Version = contentVersion(p.Files)
	}

	// Validation needs an id; the store assigns one later if it is missing
	check := *p
	if check.ID == "" {
		check.ID = "pending"
	}
	if err := check.Validate(); err != nil {
		return nil, err
	}

	log.Debugf("[Patcher] built patch from directory: %d files, version %s", len(p.Files), p.Version)
	return p, nil
}

func classify(host vfs.HostStore, path string) (storage.FileStatus, error) {
	_, err := host.Stat(path)
	switch {
	case err == nil:
		return storage.StatusModified, nil
	case vfs.IsNotFound(err):
		return storage.StatusAdded, nil
	default:
		return "", err
	}
}

func readAll(fs billy.Filesystem, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// contentVersion hashes the sorted files of a patch
func contentVersion(files []storage.PatchFile) string {
	d := xxhash.New()
	for _, f := range files {
		d.WriteString(f.Path)
		d.WriteString("\x00")
		d.WriteString(string(f.Status))
		d.WriteString("\x00")
		d.Write(f.Content)
		d.WriteString("\n")
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
