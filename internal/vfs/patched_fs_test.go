package vfs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patchfs/internal/common"
)

func TestPatchedFSStat(t *testing.T) {
	t.Parallel()

	patcher := &fakePatcher{
		version: "p1",
		sets: FileSets{
			Added:    []string{"/a/new.txt", "/fresh/dir/file.txt"},
			Deleted:  []string{"/a/b.txt", "/a/sub/x.txt"},
			Modified: []string{"/a/c.txt"},
		},
	}
	const pv = PatchVersionPrefix + "p1"

	tests := []struct {
		name    string
		path    string
		want    *StatInfo
		wantErr error
	}{
		{
			name: "patched directory",
			path: "/a/",
			want: &StatInfo{Version: pv, ChildVersions: map[string]string{
				"c.txt": pv, "new.txt": pv, "sub/": pv,
			}},
		},
		{name: "added file", path: "/a/new.txt", want: &StatInfo{Version: pv}},
		{name: "modified file", path: "/a/c.txt", want: &StatInfo{Version: pv}},
		{name: "deleted file", path: "/a/b.txt", wantErr: common.ErrNotFound},
		{name: "missing file in patched directory", path: "/a/nope.txt", wantErr: common.ErrNotFound},
		{
			name: "directory emptied by the patch still exists",
			path: "/a/sub/",
			want: &StatInfo{Version: pv, ChildVersions: map[string]string{}},
		},
		{
			name: "new directory",
			path: "/fresh/",
			want: &StatInfo{Version: pv, ChildVersions: map[string]string{"dir/": pv}},
		},
		{
			name: "new nested directory",
			path: "/fresh/dir/",
			want: &StatInfo{Version: pv, ChildVersions: map[string]string{"file.txt": pv}},
		},
		{name: "file in new directory", path: "/fresh/dir/file.txt", want: &StatInfo{Version: pv}},
		{name: "unpatched file in unpatched directory", path: "/other/o.txt", want: &StatInfo{Version: "h5"}},
		{name: "missing path in unpatched directory", path: "/other/none", wantErr: common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			host := standardHost()
			host.files["/other/o.txt"] = hostFile{"o", "h5"}
			host.addChild("/other/", "o.txt", "h5")
			fs := NewPatchedFS(host, patcher)

			got, err := fs.Stat(tt.path)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatchedFSStatRootGetsPatchedChildren(t *testing.T) {
	t.Parallel()

	host := standardHost()
	fs := NewPatchedFS(host, &fakePatcher{
		version: "p1",
		sets:    FileSets{Added: []string{"/fresh/dir/file.txt"}},
	})

	st, err := fs.Stat("/")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a/":      "dv:/a/",
		"top.txt": "h4",
		"fresh/":  PatchVersionPrefix + "p1",
	}, st.ChildVersions)
}

func TestPatchedFSStatUnaffectedIsHostStat(t *testing.T) {
	t.Parallel()

	host := standardHost()
	fs := NewPatchedFS(host, &fakePatcher{version: "p1", sets: FileSets{Added: []string{"/elsewhere/x"}}})

	got, err := fs.Stat("/a/")
	require.NoError(t, err)
	want, err := host.Stat("/a/")
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestPatchedFSStatDoesNotMutateHostStat(t *testing.T) {
	t.Parallel()

	host := standardHost()
	fs := NewPatchedFS(host, &fakePatcher{
		version: "p1",
		sets:    FileSets{Added: []string{"/a/new.txt"}, Deleted: []string{"/a/b.txt"}},
	})

	shared := host.dirs["/a/"]
	before := shared.Clone()

	_, err := fs.Stat("/a/")
	require.NoError(t, err)
	_, err = fs.Stat("/a/new.txt")
	require.NoError(t, err)

	assert.Equal(t, before, shared)
}

func TestPatchedFSStatUnversioned(t *testing.T) {
	t.Parallel()

	host := standardHost()
	fs := NewPatchedFS(host, &fakePatcher{sets: FileSets{Added: []string{"/a/new.txt"}}})

	_, err := fs.Stat("/a/new.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidState))
	assert.Zero(t, host.statCalls.Load())
}

func TestPatchedFSStatHostErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend exploded")

	t.Run("propagated when directory only has deletions", func(t *testing.T) {
		t.Parallel()
		host := standardHost()
		host.statErr = boom
		fs := NewPatchedFS(host, &fakePatcher{version: "p", sets: FileSets{Deleted: []string{"/a/b.txt"}}})
		_, err := fs.Stat("/a/")
		assert.Same(t, boom, err)
	})

	t.Run("propagated when directory has additions", func(t *testing.T) {
		t.Parallel()
		host := standardHost()
		host.statErr = boom
		fs := NewPatchedFS(host, &fakePatcher{version: "p", sets: FileSets{Added: []string{"/a/n"}}})
		_, err := fs.Stat("/a/")
		assert.Same(t, boom, err)
	})

	t.Run("not found for modified-only directory", func(t *testing.T) {
		t.Parallel()
		host := standardHost()
		fs := NewPatchedFS(host, &fakePatcher{version: "p", sets: FileSets{Modified: []string{"/ghost/m"}}})
		_, err := fs.Stat("/ghost/")
		assert.True(t, IsNotFound(err))
	})

	t.Run("unaffected directory", func(t *testing.T) {
		t.Parallel()
		host := standardHost()
		host.statErr = boom
		fs := NewPatchedFS(host, &fakePatcher{version: "p"})
		_, err := fs.Stat("/a/b.txt")
		assert.Same(t, boom, err)
	})
}

func TestPatchedFSRead(t *testing.T) {
	t.Parallel()

	newFS := func() (*PatchedFS, *fakeHost, *fakePatcher) {
		host := standardHost()
		patcher := &fakePatcher{
			version: "p1",
			sets: FileSets{
				Added:    []string{"/a/new.txt", "/fresh/dir/file.txt"},
				Deleted:  []string{"/a/b.txt", "/a/sub/x.txt"},
				Modified: []string{"/a/c.txt"},
			},
			contents: map[string]string{
				"/a/new.txt":          "brand new",
				"/fresh/dir/file.txt": "fresh",
				"/a/c.txt":            "sea, patched",
			},
		}
		return NewPatchedFS(host, patcher), host, patcher
	}

	t.Run("mixed files and directories", func(t *testing.T) {
		t.Parallel()
		fs, _, _ := newFS()
		got, err := fs.Read([]string{"/top.txt", "/a/c.txt", "/a/new.txt", "/a/", "/fresh/", "/fresh/dir/", "/a/sub/"}).Get()
		require.NoError(t, err)

		assert.Equal(t, "top", string(got["/top.txt"].Data))
		assert.Equal(t, "sea, patched", string(got["/a/c.txt"].Data))
		assert.Equal(t, "brand new", string(got["/a/new.txt"].Data))
		assert.Equal(t, []string{"c.txt", "sub/", "new.txt"}, got["/a/"].Children)
		assert.Equal(t, []string{"dir/"}, got["/fresh/"].Children)
		assert.Equal(t, []string{"file.txt"}, got["/fresh/dir/"].Children)
		assert.Equal(t, []string{}, got["/a/sub/"].Children)
		assert.Len(t, got, 7)
	})

	t.Run("deleted path fails before any fetch", func(t *testing.T) {
		t.Parallel()
		fs, host, patcher := newFS()
		_, err := fs.Read([]string{"/top.txt", "/a/", "/a/b.txt"}).Get()
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Zero(t, host.readCalls.Load())
		assert.Zero(t, host.readSingleCalls.Load())
		assert.Zero(t, patcher.applyCalls.Load())
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		fs, _, _ := newFS()
		_, err := fs.Read([]string{"/top.txt", "/nowhere/"}).Get()
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing host file", func(t *testing.T) {
		t.Parallel()
		fs, _, _ := newFS()
		_, err := fs.Read([]string{"/a/missing.txt"}).Get()
		assert.True(t, IsNotFound(err))
	})

	t.Run("directory probe runs during the call", func(t *testing.T) {
		t.Parallel()
		fs, host, _ := newFS()
		f := fs.Read([]string{"/a/", "/fresh/"})
		assert.Equal(t, int32(2), host.readSingleCalls.Load())
		_, err := f.Get()
		require.NoError(t, err)
	})

	t.Run("directory probe errors fail the read", func(t *testing.T) {
		t.Parallel()
		fs, host, _ := newFS()
		boom := errors.New("io failure")
		host.readSingleErr = boom
		_, err := fs.Read([]string{"/a/"}).Get()
		assert.Same(t, boom, err)
	})

	t.Run("patch errors propagate", func(t *testing.T) {
		t.Parallel()
		fs, _, patcher := newFS()
		boom := errors.New("patch failed")
		patcher.applyErr = boom
		_, err := fs.Read([]string{"/a/new.txt", "/top.txt"}).Get()
		assert.Same(t, boom, err)
	})

	t.Run("duplicate paths", func(t *testing.T) {
		t.Parallel()
		fs, _, _ := newFS()
		got, err := fs.Read([]string{"/top.txt", "/top.txt", "/a/c.txt", "/a/c.txt"}).Get()
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("second get is idempotent", func(t *testing.T) {
		t.Parallel()
		fs, _, _ := newFS()
		f := fs.Read([]string{"/top.txt", "/a/"})
		first, err := f.Get()
		require.NoError(t, err)
		second, err := f.Get()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestPatchedFSReadFetchesConcurrently(t *testing.T) {
	t.Parallel()

	host := standardHost()
	host.readGate = make(chan struct{})
	patcher := &fakePatcher{
		version:   "p1",
		sets:      FileSets{Modified: []string{"/a/c.txt"}},
		contents:  map[string]string{"/a/c.txt": "patched"},
		applyGate: make(chan struct{}),
	}
	fs := NewPatchedFS(host, patcher)

	// Read must return while both fetches are still blocked
	done := make(chan struct{})
	go func() {
		defer close(done)
		f := fs.Read([]string{"/top.txt", "/a/c.txt"})

		// Release the patch first; the host read finishes afterwards
		close(patcher.applyGate)
		time.Sleep(10 * time.Millisecond)
		close(host.readGate)

		got, err := f.Get()
		assert.NoError(t, err)
		assert.Equal(t, "patched", string(got["/a/c.txt"].Data))
		assert.Equal(t, "top", string(got["/top.txt"].Data))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("read did not complete")
	}
	assert.Equal(t, int32(1), host.readCalls.Load())
	assert.Equal(t, int32(1), patcher.applyCalls.Load())
}

func TestPatchedFSReadResultDoesNotAliasHostResult(t *testing.T) {
	t.Parallel()

	host := standardHost()
	fs := NewPatchedFS(host, &fakePatcher{version: "p1"})
	f := fs.Read([]string{"/top.txt"})

	got, err := f.Get()
	require.NoError(t, err)
	got["/injected"] = Content{}

	again, err := f.Get()
	require.NoError(t, err)
	assert.NotContains(t, again, "/injected")
}

func TestPatchedFSReadUnaffectedMatchesHost(t *testing.T) {
	t.Parallel()

	host := standardHost()
	fs := NewPatchedFS(host, &fakePatcher{version: "p1", sets: FileSets{Added: []string{"/elsewhere/n"}}})

	paths := []string{"/a/", "/a/b.txt", "/a/sub/", "/top.txt"}
	got, err := fs.Read(paths).Get()
	require.NoError(t, err)
	want, err := host.Read(paths).Get()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPatchedFSStacked(t *testing.T) {
	t.Parallel()

	host := standardHost()
	lower := NewPatchedFS(host, &fakePatcher{
		version:  "p1",
		sets:     FileSets{Added: []string{"/a/one.txt"}},
		contents: map[string]string{"/a/one.txt": "1"},
	})
	upper := NewPatchedFS(lower, &fakePatcher{
		version:  "p2",
		sets:     FileSets{Added: []string{"/a/two.txt"}, Deleted: []string{"/a/b.txt"}},
		contents: map[string]string{"/a/two.txt": "2"},
	})

	got, err := upper.Read([]string{"/a/", "/a/one.txt", "/a/two.txt"}).Get()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c.txt", "one.txt", "sub/", "two.txt"}, got["/a/"].Children)
	assert.Equal(t, "1", string(got["/a/one.txt"].Data))
	assert.Equal(t, "2", string(got["/a/two.txt"].Data))

	st, err := upper.Stat("/a/")
	require.NoError(t, err)
	assert.Equal(t, PatchVersionPrefix+"p2", st.Version)
	assert.Equal(t, PatchVersionPrefix+"p1", st.ChildVersions["one.txt"])
	assert.Equal(t, PatchVersionPrefix+"p2", st.ChildVersions["two.txt"])
	assert.NotContains(t, st.ChildVersions, "b.txt")

	c, err := upper.ReadSingle("/a/one.txt")
	require.NoError(t, err)
	assert.Equal(t, "1", string(c.Data))
}
