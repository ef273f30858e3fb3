// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"time"

	"github.com/uptrace/bun"
)

// Bun ORM models for the patch store tables.

// SchemaInfoModel represents the schema_info table
type SchemaInfoModel struct {
	bun.BaseModel `bun:"table:schema_info"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// PatchModel represents the patches table
type PatchModel struct {
	bun.BaseModel `bun:"table:patches"`

	ID          string `bun:"id,pk"`
	Version     string `bun:"version,notnull"`
	Description string `bun:"description,notnull"`
	CreatedAt   int64  `bun:"created_at,notnull"` // Unix timestamp
}

// PatchFileModel represents the patch_files table
type PatchFileModel struct {
	bun.BaseModel `bun:"table:patch_files"`

	PatchID string `bun:"patch_id,pk"`
	Path    string `bun:"path,pk"`
	Status  string `bun:"status,notnull"` // "added", "deleted", "modified"
	Content []byte `bun:"content"`        // NULL for deleted files
}

// ToPatch converts a PatchModel and its file rows to a Patch
func (m *PatchModel) ToPatch(files []PatchFileModel) *Patch {
	p := &Patch{
		ID:          m.ID,
		Version:     m.Version,
		Description: m.Description,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
	}
	for _, f := range files {
		p.Files = append(p.Files, PatchFile{
			Path:    f.Path,
			Status:  FileStatus(f.Status),
			Content: f.Content,
		})
	}
	return p
}

// PatchModelFromPatch converts a Patch into its table rows
func PatchModelFromPatch(p *Patch) (*PatchModel, []PatchFileModel) {
	m := &PatchModel{
		ID:          p.ID,
		Version:     p.Version,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Unix(),
	}
	files := make([]PatchFileModel, 0, len(p.Files))
	for _, f := range p.Files {
		row := PatchFileModel{PatchID: p.ID, Path: f.Path, Status: string(f.Status)}
		if f.Status != StatusDeleted {
			row.Content = f.Content
			if row.Content == nil {
				row.Content = []byte{}
			}
		}
		files = append(files, row)
	}
	return m, files
}
