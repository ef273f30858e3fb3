// Package hoststore provides vfs.HostStore implementations: a store over
// a billy filesystem and a stat-caching wrapper around any store.
package hoststore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"patchfs/internal/common"
	"patchfs/internal/future"
	"patchfs/internal/vfs"
)

// DefaultConcurrency bounds the number of files read in parallel by Read
const DefaultConcurrency = 8

// FS is a read-only vfs.HostStore over a billy filesystem.
//
// Versions are content hashes: a file's version is the xxhash of its
// bytes, a directory's version hashes the names and versions of its
// children, so any change below a directory changes its version.
type FS struct {
	fs          billy.Filesystem
	concurrency int
	ignore      *ignoreMatcher
	gitignore   bool
}

var _ vfs.HostStore = (*FS)(nil)

// Option configures an FS
type Option func(*FS)

// WithConcurrency sets how many files Read fetches in parallel
func WithConcurrency(n int) Option {
	return func(s *FS) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithGitignore hides everything matched by the root .gitignore
func WithGitignore(enabled bool) Option {
	return func(s *FS) {
		s.gitignore = enabled
	}
}

// New creates a host store over fs
func New(fs billy.Filesystem, opts ...Option) *FS {
	s := &FS{fs: fs, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(s)
	}
	if s.gitignore {
		m, err := loadIgnoreMatcher(fs)
		if err != nil {
			log.Warnf("[HostStore] failed to load .gitignore: %v", err)
		}
		s.ignore = m
	}
	return s
}

// NewOS creates a host store over a directory on disk
func NewOS(root string, opts ...Option) *FS {
	return New(osfs.New(root), opts...)
}

// Read reads all paths in parallel
func (s *FS) Read(paths []string) *future.Future[map[string]vfs.Content] {
	paths = slices.Clone(paths)
	return future.Go(func() (map[string]vfs.Content, error) {
		var mu sync.Mutex
		result := make(map[string]vfs.Content, len(paths))

		g := new(errgroup.Group)
		g.SetLimit(s.concurrency)
		for _, p := range paths {
			g.Go(func() error {
				c, err := s.ReadSingle(p)
				if err != nil {
					return err
				}
				mu.Lock()
				result[p] = c
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return result, nil
	})
}

// ReadSingle reads a file's bytes or a directory's sorted child names
func (s *FS) ReadSingle(path string) (vfs.Content, error) {
	bp, err := s.resolve(path)
	if err != nil {
		return vfs.Content{}, err
	}
	if vfs.IsDirPath(path) {
		entries, err := s.listDir(bp)
		if err != nil {
			return vfs.Content{}, mapErr(path, err)
		}
		children := make([]string, 0, len(entries))
		for _, e := range entries {
			children = append(children, childName(e))
		}
		return vfs.Content{Children: children}, nil
	}
	data, err := s.readFile(bp)
	if err != nil {
		return vfs.Content{}, mapErr(path, err)
	}
	return vfs.Content{Data: data}, nil
}

// Stat returns the content-derived version of path
func (s *FS) Stat(path string) (*vfs.StatInfo, error) {
	bp, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if vfs.IsDirPath(path) {
		st, err := s.dirStat(bp)
		if err != nil {
			return nil, mapErr(path, err)
		}
		return st, nil
	}
	version, err := s.fileVersion(bp)
	if err != nil {
		return nil, mapErr(path, err)
	}
	return &vfs.StatInfo{Version: version}, nil
}

// resolve maps a store path onto an absolute billy path and checks that
// it exists with the kind the path implies.
func (s *FS) resolve(path string) (string, error) {
	rel := common.NormalizePath(path)
	bp := "/" + rel
	isDir := vfs.IsDirPath(path)

	if rel != "" && s.ignore.isIgnored(rel, isDir) {
		return "", fmt.Errorf("%s is ignored: %w", path, common.ErrNotFound)
	}

	info, err := s.fs.Stat(bp)
	if err != nil {
		return "", mapErr(path, err)
	}
	if info.IsDir() != isDir {
		return "", fmt.Errorf("%s: kind mismatch: %w", path, common.ErrNotFound)
	}
	return bp, nil
}

// listDir returns the visible entries of a directory, sorted by name
func (s *FS) listDir(bp string) ([]os.FileInfo, error) {
	entries, err := s.fs.ReadDir(bp)
	if err != nil {
		return nil, err
	}
	visible := entries[:0]
	for _, e := range entries {
		if s.ignore.isIgnored(common.JoinPath(bp, e.Name()), e.IsDir()) {
			continue
		}
		visible = append(visible, e)
	}
	slices.SortFunc(visible, func(a, b os.FileInfo) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return visible, nil
}

func (s *FS) readFile(bp string) ([]byte, error) {
	f, err := s.fs.Open(bp)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *FS) fileVersion(bp string) (string, error) {
	data, err := s.readFile(bp)
	if err != nil {
		return "", err
	}
	return formatVersion(xxhash.Sum64(data)), nil
}

// dirStat computes the child versions of a directory, recursing into
// subdirectories for their versions.
func (s *FS) dirStat(bp string) (*vfs.StatInfo, error) {
	entries, err := s.listDir(bp)
	if err != nil {
		return nil, err
	}

	children := make(map[string]string, len(entries))
	h := xxhash.New()
	for _, e := range entries {
		childPath := strings.TrimSuffix(bp, "/") + "/" + e.Name()
		var version string
		if e.IsDir() {
			sub, err := s.dirStat(childPath)
			if err != nil {
				return nil, err
			}
			version = sub.Version
		} else {
			version, err = s.fileVersion(childPath)
			if err != nil {
				return nil, err
			}
		}
		name := childName(e)
		children[name] = version

		// entries are sorted, so the digest is deterministic
		h.WriteString(name)
		h.Write([]byte{0})
		h.WriteString(version)
		h.Write([]byte{'\n'})
	}
	return &vfs.StatInfo{Version: formatVersion(h.Sum64()), ChildVersions: children}, nil
}

func childName(e os.FileInfo) string {
	if e.IsDir() {
		return e.Name() + vfs.Separator
	}
	return e.Name()
}

func formatVersion(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// mapErr turns a missing-file error into common.ErrNotFound and leaves
// every other error alone.
func mapErr(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, common.ErrNotFound)
	}
	return err
}
