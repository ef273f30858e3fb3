package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"patchfs/internal/cache"
	"patchfs/internal/hoststore"
	"patchfs/internal/patcher"
	"patchfs/internal/storage"
	"patchfs/internal/vfs"
)

// hostRoot returns the host directory from settings or the working directory
func hostRoot() (string, error) {
	if settings.HostRoot != "" {
		return filepath.Abs(settings.HostRoot)
	}
	return os.Getwd()
}

// openHost opens the host directory as a stat-cached host store
func openHost() (*hoststore.Cached, error) {
	root, err := hostRoot()
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("host %s is not a directory", root)
	}

	fs := hoststore.NewOS(root,
		hoststore.WithConcurrency(settings.ReadConcurrency),
		hoststore.WithGitignore(settings.GitignoreEnabled()),
	)
	stats := cache.NewStatCache(settings.StatCacheTTL(), settings.StatCacheMaxEntries)
	log.Debugf("[CLI] host store at %s", root)
	return hoststore.NewCached(fs, stats), nil
}

// openStore opens the patch store, creating it first if create is set
func openStore(create bool) (*storage.PatchStore, error) {
	dbPath := settings.DatabasePath()
	if create {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, err
		}
		return storage.OpenOrCreate(dbPath)
	}
	return storage.Open(dbPath)
}

// openView returns the host store, overlaid with patch patchID if it is
// set. The returned function releases the patch store.
func openView(ctx context.Context, patchID string) (vfs.HostStore, func(), error) {
	host, err := openHost()
	if err != nil {
		return nil, func() {}, err
	}
	if patchID == "" {
		return host, func() {}, nil
	}

	store, err := openStore(false)
	if err != nil {
		return nil, func() {}, err
	}
	p, err := patcher.LoadStored(ctx, store, patchID)
	if err != nil {
		store.Close()
		return nil, func() {}, err
	}
	return vfs.NewPatchedFS(host, p), func() { store.Close() }, nil
}

// resolveKind returns p, or p as a directory path when p names a
// directory the user wrote without a trailing "/".
func resolveKind(store vfs.HostStore, p string) string {
	if vfs.IsDirPath(p) {
		return p
	}
	if _, err := store.Stat(p); vfs.IsNotFound(err) {
		if _, err := store.Stat(p + "/"); err == nil {
			return p + "/"
		}
	}
	return p
}
