package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaConstants(t *testing.T) {
	if SchemaVersion != "1" {
		t.Errorf("SchemaVersion = %s, want 1", SchemaVersion)
	}
	if DefaultBusyTimeout != 30000 {
		t.Errorf("DefaultBusyTimeout = %d, want 30000", DefaultBusyTimeout)
	}
}

func TestGetBusyTimeout(t *testing.T) {
	origConfig := configBusyTimeout
	defer func() { configBusyTimeout = origConfig }()

	os.Unsetenv(EnvBusyTimeout)

	// Default value when nothing is set
	configBusyTimeout = 0
	if got := GetBusyTimeout(); got != DefaultBusyTimeout {
		t.Errorf("default timeout = %d, want %d", got, DefaultBusyTimeout)
	}

	// Config file value
	configBusyTimeout = 5000
	if got := GetBusyTimeout(); got != 5000 {
		t.Errorf("config timeout = %d, want 5000", got)
	}

	// Env var overrides config
	os.Setenv(EnvBusyTimeout, "15000")
	defer os.Unsetenv(EnvBusyTimeout)
	if got := GetBusyTimeout(); got != 15000 {
		t.Errorf("env timeout = %d, want 15000", got)
	}

	// Garbage in env falls back to config
	os.Setenv(EnvBusyTimeout, "soon")
	if got := GetBusyTimeout(); got != 5000 {
		t.Errorf("invalid env timeout = %d, want 5000", got)
	}
}

func TestSetConfigBusyTimeout(t *testing.T) {
	orig := configBusyTimeout
	defer func() { configBusyTimeout = orig }()

	SetConfigBusyTimeout(1000)
	if configBusyTimeout != 1000 {
		t.Errorf("configBusyTimeout = %d, want 1000", configBusyTimeout)
	}
}

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN("/tmp/p.db")
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/p.db?"))
	assert.Contains(t, dsn, "_journal_mode=WAL")
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	stmts := splitStatements(`
-- comment
CREATE TABLE a (x INT);

INSERT INTO a VALUES (1);
SELECT 1`)
	assert.Equal(t, []string{
		"CREATE TABLE a (x INT);",
		"INSERT INTO a VALUES (1);",
		"SELECT 1",
	}, stmts)

	// The patch store schema has three tables and one index
	assert.Len(t, splitStatements(patchStoreSchema), 4)
	assert.Len(t, splitStatements(initPatchStore), 3)
}
