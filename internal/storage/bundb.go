package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"patchfs/internal/common"
)

// BunDB wraps a Bun database instance for type-safe queries.
type BunDB struct {
	*bun.DB
}

// NewBunDB wraps an existing *sql.DB with Bun's type-safe query builder.
func NewBunDB(sqlDB *sql.DB) *BunDB {
	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	return &BunDB{DB: bunDB}
}

// --- Schema Info ---

// GetSchemaInfo retrieves a schema info value by key.
func (db *BunDB) GetSchemaInfo(ctx context.Context, key string) (string, error) {
	var info SchemaInfoModel
	err := db.NewSelect().
		Model(&info).
		Where("key = ?", key).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return info.Value, nil
}

// SetSchemaInfo sets a schema info value (upserts).
func (db *BunDB) SetSchemaInfo(ctx context.Context, key, value string) error {
	_, err := db.NewInsert().
		Model(&SchemaInfoModel{Key: key, Value: value}).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

// --- Patch Operations ---

// InsertPatch stores a patch and its files in one transaction.
// Returns common.ErrExists if a patch with the same id is already stored.
func (db *BunDB) InsertPatch(ctx context.Context, patch *PatchModel, files []PatchFileModel) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*PatchModel)(nil)).
			Where("id = ?", patch.ID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("patch %s: %w", patch.ID, common.ErrExists)
		}

		if _, err := tx.NewInsert().Model(patch).Exec(ctx); err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&files).Exec(ctx)
		return err
	})
}

// GetPatch returns the patch row for id, or common.ErrNotFound.
func (db *BunDB) GetPatch(ctx context.Context, id string) (*PatchModel, error) {
	var patch PatchModel
	err := db.NewSelect().
		Model(&patch).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patch %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &patch, nil
}

// ListPatches returns all patch rows, oldest first.
func (db *BunDB) ListPatches(ctx context.Context) ([]PatchModel, error) {
	var patches []PatchModel
	err := db.NewSelect().
		Model(&patches).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	return patches, err
}

// GetPatchFiles returns the file rows of a patch ordered by path.
// Content is only loaded when withContent is set.
func (db *BunDB) GetPatchFiles(ctx context.Context, id string, withContent bool) ([]PatchFileModel, error) {
	var files []PatchFileModel
	q := db.NewSelect().
		Model(&files).
		Where("patch_id = ?", id).
		Order("path ASC")
	if !withContent {
		q = q.ExcludeColumn("content")
	}
	err := q.Scan(ctx)
	return files, err
}

// GetPatchFileContents returns the rows, including content, of the given
// added or modified paths of a patch.
func (db *BunDB) GetPatchFileContents(ctx context.Context, id string, paths []string) ([]PatchFileModel, error) {
	var files []PatchFileModel
	if len(paths) == 0 {
		return files, nil
	}
	err := db.NewSelect().
		Model(&files).
		Where("patch_id = ?", id).
		Where("path IN (?)", bun.In(paths)).
		Where("status != ?", string(StatusDeleted)).
		Scan(ctx)
	return files, err
}

// DeletePatch removes a patch and its files. Returns common.ErrNotFound if
// no such patch exists.
func (db *BunDB) DeletePatch(ctx context.Context, id string) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*PatchModel)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("patch %s: %w", id, common.ErrNotFound)
		}

		if _, err := tx.NewDelete().
			Model((*PatchFileModel)(nil)).
			Where("patch_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().
			Model((*PatchModel)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}
