// Package config locates the patchfs config directory and loads its
// settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"patchfs/internal/artifacts"
)

// EnvConfigDir overrides the config directory
const EnvConfigDir = "PATCHFS_CONFIG_DIR"

// Defaults for settings missing from the file
const (
	DefaultDatabase            = "patches.db"
	DefaultLogLevel            = "warn"
	DefaultStatCacheTTL        = 1000
	DefaultStatCacheMaxEntries = 10000
	DefaultReadConcurrency     = 8
)

// Dir returns the config directory path.
// Uses PATCHFS_CONFIG_DIR if set, otherwise defaults to ~/.patchfs.
// This is computed dynamically to support test isolation.
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".patchfs")
}

// SettingsPath returns the settings file path
func SettingsPath() string {
	return filepath.Join(Dir(), "settings.yaml")
}

// EnsureDir creates the config directory if it doesn't exist
func EnsureDir() error {
	return os.MkdirAll(Dir(), 0700)
}

// Init creates the config directory and writes the default settings file
// if there is none yet.
func Init() error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path := SettingsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, artifacts.GlobalSettings, 0600); err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
	}
	return nil
}

// Settings are the user settings from settings.yaml
type Settings struct {
	HostRoot            string `yaml:"host_root"`              // host tree, empty = working directory
	Database            string `yaml:"database"`               // patch store, relative to the config dir
	LogLevel            string `yaml:"log_level"`              // trace, debug, info, warn, error, off
	Gitignore           *bool  `yaml:"gitignore"`              // default: true (pointer to detect missing)
	StatCacheTTLMs      int    `yaml:"stat_cache_ttl_ms"`      // 0 = default
	StatCacheMaxEntries int    `yaml:"stat_cache_max_entries"` // 0 = default
	ReadConcurrency     int    `yaml:"read_concurrency"`       // 0 = default
	BusyTimeout         int    `yaml:"busy_timeout"`           // SQLite busy_timeout (ms), 0 = use default
}

// ApplyDefaults fills zero-value fields with their defaults.
func (s *Settings) ApplyDefaults() {
	if s.Database == "" {
		s.Database = DefaultDatabase
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.Gitignore == nil {
		t := true
		s.Gitignore = &t
	}
	if s.StatCacheTTLMs <= 0 {
		s.StatCacheTTLMs = DefaultStatCacheTTL
	}
	if s.StatCacheMaxEntries <= 0 {
		s.StatCacheMaxEntries = DefaultStatCacheMaxEntries
	}
	if s.ReadConcurrency <= 0 {
		s.ReadConcurrency = DefaultReadConcurrency
	}
}

// GitignoreEnabled returns whether gitignore filtering is enabled (defaults to true).
func (s *Settings) GitignoreEnabled() bool {
	if s.Gitignore == nil {
		return true
	}
	return *s.Gitignore
}

// NormalizedLogLevel returns the lowercase log level
func (s *Settings) NormalizedLogLevel() string {
	return strings.ToLower(strings.TrimSpace(s.LogLevel))
}

// StatCacheTTL returns the stat cache TTL as a duration
func (s *Settings) StatCacheTTL() time.Duration {
	return time.Duration(s.StatCacheTTLMs) * time.Millisecond
}

// DatabasePath returns the patch store path. Relative paths are resolved
// against the config directory.
func (s *Settings) DatabasePath() string {
	if filepath.IsAbs(s.Database) {
		return s.Database
	}
	return filepath.Join(Dir(), s.Database)
}

// loadDefaultSettings parses default settings from embedded artifact.
func loadDefaultSettings() Settings {
	var settings Settings
	if err := yaml.Unmarshal(artifacts.GlobalSettings, &settings); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	return settings
}

// Load loads settings from path, or from SettingsPath when path is empty.
// Falls back to embedded defaults if the file doesn't exist.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			settings := loadDefaultSettings()
			settings.ApplyDefaults()
			return &settings, nil
		}
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	settings.ApplyDefaults()
	return &settings, nil
}

// Save writes settings to SettingsPath
func Save(settings *Settings) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	header := []byte("# patchfs settings\n# See: patchfs --help\n\n")
	return os.WriteFile(SettingsPath(), append(header, data...), 0600)
}
