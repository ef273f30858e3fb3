package vfs

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"patchfs/internal/common"
	"patchfs/internal/future"
)

type hostFile struct {
	data    string
	version string
}

// fakeHost is an in-memory HostStore. Directory stats are built once and
// handed out as shared instances, like a caching store would.
type fakeHost struct {
	files map[string]hostFile
	dirs  map[string]*StatInfo

	statErr       error // returned by every Stat when set
	readSingleErr error // returned by every ReadSingle when set
	readGate      chan struct{}

	readCalls       atomic.Int32
	readSingleCalls atomic.Int32
	statCalls       atomic.Int32
}

func newFakeHost(files map[string]hostFile) *fakeHost {
	h := &fakeHost{files: files, dirs: make(map[string]*StatInfo)}
	for p, f := range files {
		dir, name := splitPath(p)
		h.addChild(dir, name, f.version)
		for dir != "" {
			parent, base := splitPath(strings.TrimSuffix(dir, Separator))
			if parent == "" && base == "" {
				break
			}
			h.addChild(parent, base+Separator, "dv:"+dir)
			dir = parent
		}
	}
	return h
}

func (h *fakeHost) addChild(dir, name, version string) {
	st, ok := h.dirs[dir]
	if !ok {
		st = &StatInfo{Version: "dv:" + dir, ChildVersions: map[string]string{}}
		h.dirs[dir] = st
	}
	st.ChildVersions[name] = version
}

func (h *fakeHost) Read(paths []string) *future.Future[map[string]Content] {
	h.readCalls.Add(1)
	return future.Go(func() (map[string]Content, error) {
		if h.readGate != nil {
			<-h.readGate
		}
		result := make(map[string]Content, len(paths))
		for _, p := range paths {
			c, err := h.read(p)
			if err != nil {
				return nil, err
			}
			result[p] = c
		}
		return result, nil
	})
}

func (h *fakeHost) ReadSingle(path string) (Content, error) {
	h.readSingleCalls.Add(1)
	if h.readSingleErr != nil {
		return Content{}, h.readSingleErr
	}
	return h.read(path)
}

func (h *fakeHost) read(path string) (Content, error) {
	if IsDirPath(path) {
		st, ok := h.dirs[path]
		if !ok {
			return Content{}, fmt.Errorf("directory %s: %w", path, common.ErrNotFound)
		}
		children := make([]string, 0, len(st.ChildVersions))
		for name := range st.ChildVersions {
			children = append(children, name)
		}
		slices.Sort(children)
		return Content{Children: children}, nil
	}
	f, ok := h.files[path]
	if !ok {
		return Content{}, fmt.Errorf("file %s: %w", path, common.ErrNotFound)
	}
	return Content{Data: []byte(f.data)}, nil
}

func (h *fakeHost) Stat(path string) (*StatInfo, error) {
	h.statCalls.Add(1)
	if h.statErr != nil {
		return nil, h.statErr
	}
	if IsDirPath(path) {
		st, ok := h.dirs[path]
		if !ok {
			return nil, fmt.Errorf("directory %s: %w", path, common.ErrNotFound)
		}
		return st, nil
	}
	f, ok := h.files[path]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", path, common.ErrNotFound)
	}
	return &StatInfo{Version: f.version}, nil
}

type fakePatcher struct {
	sets     FileSets
	contents map[string]string
	version  string

	applyErr   error
	applyGate  chan struct{}
	applyCalls atomic.Int32
}

func (p *fakePatcher) PatchedFiles() FileSets {
	return p.sets
}

func (p *fakePatcher) Apply(paths []string, _ HostStore) *future.Future[map[string]Content] {
	p.applyCalls.Add(1)
	return future.Go(func() (map[string]Content, error) {
		if p.applyGate != nil {
			<-p.applyGate
		}
		if p.applyErr != nil {
			return nil, p.applyErr
		}
		result := make(map[string]Content, len(paths))
		for _, path := range paths {
			data, ok := p.contents[path]
			if !ok {
				return nil, fmt.Errorf("patched file %s: %w", path, common.ErrNotFound)
			}
			result[path] = Content{Data: []byte(data)}
		}
		return result, nil
	})
}

func (p *fakePatcher) Version() (string, bool) {
	return p.version, p.version != ""
}

// standardHost is the tree most tests start from:
//
//	/a/b.txt  h1
//	/a/c.txt  h2
//	/a/sub/x.txt  h3
//	/top.txt  h4
func standardHost() *fakeHost {
	return newFakeHost(map[string]hostFile{
		"/a/b.txt":     {"bee", "h1"},
		"/a/c.txt":     {"sea", "h2"},
		"/a/sub/x.txt": {"ex", "h3"},
		"/top.txt":     {"top", "h4"},
	})
}
