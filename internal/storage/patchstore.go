package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"

	"patchfs/internal/common"
	"patchfs/internal/util"
)

// PatchStore is a SQLite file holding patches. Reads may run
// concurrently; writes are serialized within the process and, through a
// lock file next to the database, across processes.
type PatchStore struct {
	path  string
	db    *sql.DB
	bunDB *BunDB

	writeMu sync.Mutex
	lock    *flock.Flock
}

// execPragma runs a PRAGMA statement using Query (not Exec) because libsql
// returns rows for PRAGMA statements. The result rows are drained and closed.
func execPragma(db *sql.DB, pragma string) error {
	rows, err := db.Query(pragma)
	if err != nil {
		return err
	}
	rows.Close()
	return nil
}

// applyPragmas sets essential PRAGMAs after opening a libsql connection.
// libsql ignores DSN-based _pragma=value parameters, so all PRAGMAs must be
// set explicitly via SQL statements after the connection is opened.
func applyPragmas(db *sql.DB) error {
	// Busy timeout first, so journal_mode=WAL waits instead of failing
	if err := execPragma(db, fmt.Sprintf("PRAGMA busy_timeout = %d", GetBusyTimeout())); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if err := execPragma(db, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to set journal_mode=WAL: %w", err)
	}
	if err := execPragma(db, "PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous=NORMAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}

// Create creates a new patch store file
func Create(path string) (*PatchStore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file already exists: %s: %w", path, common.ErrExists)
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}

	// Create schema (execute statements individually for libsql compatibility)
	if err := execStatements(db, patchStoreSchema); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := execStatements(db, initPatchStore, SchemaVersion); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to initialize patch store: %w", err)
	}

	log.Debugf("[PatchStore] created %s", path)
	return newPatchStore(path, db), nil
}

// Open opens an existing patch store file
func Open(path string) (*PatchStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s: %w", path, common.ErrNotFound)
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	s := newPatchStore(path, db)

	fileType, err := s.bunDB.GetSchemaInfo(context.Background(), "type")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema info: %w", err)
	}
	if fileType != "patches" {
		db.Close()
		return nil, fmt.Errorf("not a patch store (type=%s)", fileType)
	}
	return s, nil
}

// OpenOrCreate opens an existing patch store or creates a new one
func OpenOrCreate(path string) (*PatchStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Create(path)
	}
	return Open(path)
}

func newPatchStore(path string, db *sql.DB) *PatchStore {
	return &PatchStore{
		path:  path,
		db:    db,
		bunDB: NewBunDB(db),
		lock:  flock.New(path + ".lock"),
	}
}

// Close closes the database connection
func (s *PatchStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path
func (s *PatchStore) Path() string {
	return s.path
}

// DB returns the underlying database handle
func (s *PatchStore) DB() *sql.DB {
	return s.db
}

// lockWriters takes the in-process and cross-process write locks. The
// returned function releases both.
func (s *PatchStore) lockWriters(ctx context.Context) (func(), error) {
	s.writeMu.Lock()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		s.writeMu.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to lock patch store %s: %w", s.path, err)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			log.Warnf("[PatchStore] failed to release lock: %v", err)
		}
		s.writeMu.Unlock()
	}, nil
}

// PutPatch stores p. A missing id is filled with a new UUID and a zero
// CreatedAt with the current time, both written back into p.
func (s *PatchStore) PutPatch(ctx context.Context, p *Patch) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := p.Validate(); err != nil {
		return err
	}

	unlock, err := s.lockWriters(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	model, files := PatchModelFromPatch(p)
	err = util.Retry(ctx, func() error {
		return s.bunDB.InsertPatch(ctx, model, files)
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return err
	}
	log.Debugf("[PatchStore] stored patch %s (version=%s, files=%d)", p.ID, p.Version, len(files))
	return nil
}

// GetPatch loads a patch and its file list. File contents are only loaded
// when withContent is set.
func (s *PatchStore) GetPatch(ctx context.Context, id string, withContent bool) (*Patch, error) {
	model, err := util.RetryWithResult(ctx, func() (*PatchModel, error) {
		return s.bunDB.GetPatch(ctx, id)
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, err
	}
	files, err := util.RetryWithResult(ctx, func() ([]PatchFileModel, error) {
		return s.bunDB.GetPatchFiles(ctx, id, withContent)
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, err
	}
	return model.ToPatch(files), nil
}

// ListPatches returns all patches without their files, oldest first
func (s *PatchStore) ListPatches(ctx context.Context) ([]*Patch, error) {
	models, err := util.RetryWithResult(ctx, func() ([]PatchModel, error) {
		return s.bunDB.ListPatches(ctx)
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, err
	}
	patches := make([]*Patch, 0, len(models))
	for i := range models {
		patches = append(patches, models[i].ToPatch(nil))
	}
	return patches, nil
}

// DeletePatch removes a patch
func (s *PatchStore) DeletePatch(ctx context.Context, id string) error {
	unlock, err := s.lockWriters(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return util.Retry(ctx, func() error {
		return s.bunDB.DeletePatch(ctx, id)
	}, util.DatabaseRetryOptions(ctx)...)
}

// ReadPatchFiles returns the patched contents of added or modified paths.
// A path the patch does not add or modify yields common.ErrNotFound.
func (s *PatchStore) ReadPatchFiles(ctx context.Context, id string, paths []string) (map[string][]byte, error) {
	rows, err := util.RetryWithResult(ctx, func() ([]PatchFileModel, error) {
		return s.bunDB.GetPatchFileContents(ctx, id, paths)
	}, util.DatabaseRetryOptions(ctx)...)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(rows))
	for _, row := range rows {
		result[row.Path] = row.Content
	}
	for _, p := range paths {
		if _, ok := result[p]; !ok {
			return nil, fmt.Errorf("%s in patch %s: %w", p, id, common.ErrNotFound)
		}
	}
	return result, nil
}
