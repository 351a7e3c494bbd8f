package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the full TOML-driven sync configuration.
type Config struct {
	Source    SourceConfig  `toml:"source"`
	Target    TargetConfig  `toml:"target"`
	Workers   int           `toml:"workers"`
	ChunkSize int           `toml:"chunk_size"`
	TrimText  bool          `toml:"trim_text"`
	Hooks     HooksConfig   `toml:"hooks"`
	Tables    []TableConfig `toml:"tables"`

	// configDir is the directory containing the TOML file, used to
	// resolve relative hook paths and to place bad-record logs.
	configDir string
}

// SourceConfig identifies the source database engine and connection string.
type SourceConfig struct {
	Type string `toml:"type"` // "mysql" or "sqlite"
	DSN  string `toml:"dsn"`
}

type TargetConfig struct {
	DSN string `toml:"dsn"`
}

type HooksConfig struct {
	BeforeCopy []string `toml:"before_copy"`
	AfterCopy  []string `toml:"after_copy"`
}

// TableConfig describes one table to copy or sync.
type TableConfig struct {
	Source        string              `toml:"source"`
	Destination   string              `toml:"destination"`
	PrimaryKey    []string            `toml:"primary_key"`
	UniqueKeys    []string            `toml:"unique_keys"`
	SortColumn    string              `toml:"sort_column"`
	UpdateColumns []string            `toml:"update_columns"`
	SinceDays     int                 `toml:"since_days"`
	Recreate      bool                `toml:"recreate"`
	Overrides     map[string]Override `toml:"overrides"`
}

// loadConfig reads a TOML config file and returns a Config with defaults
// applied. Unknown keys are an error.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		ChunkSize: 1000,
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers()
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive")
	}

	if cfg.Source.Type == "" {
		return nil, fmt.Errorf("source.type is required (must be mysql or sqlite)")
	}
	if _, err := newSourceDB(cfg.Source.Type); err != nil {
		return nil, err
	}
	if cfg.Source.DSN == "" {
		return nil, fmt.Errorf("source.dsn is required")
	}
	if cfg.Target.DSN == "" {
		return nil, fmt.Errorf("target.dsn is required")
	}

	if len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("at least one [[tables]] entry is required")
	}
	for i := range cfg.Tables {
		t := &cfg.Tables[i]
		if t.Source == "" {
			return nil, fmt.Errorf("tables[%d]: source is required", i)
		}
		if t.Destination == "" {
			t.Destination = strings.ToLower(t.Source)
		}
		if t.SinceDays < 0 {
			return nil, fmt.Errorf("table %s: since_days must not be negative", t.Source)
		}
		if t.SinceDays > 0 && t.SortColumn == "" {
			return nil, fmt.Errorf("table %s: since_days requires sort_column", t.Source)
		}
	}

	return &cfg, nil
}

// validateForSync enforces the extra requirements of the differential
// flow: a watermark column, a conflict target, and an update allow-list
// that never touches key columns.
func (c *Config) validateForSync() error {
	for _, t := range c.Tables {
		if t.SortColumn == "" {
			return fmt.Errorf("table %s: sort_column is required for sync", t.Source)
		}
		if len(t.PrimaryKey) == 0 {
			return fmt.Errorf("table %s: primary_key is required for sync", t.Source)
		}
		if len(t.UpdateColumns) == 0 {
			return fmt.Errorf("table %s: update_columns is required for sync", t.Source)
		}
		for _, uc := range t.UpdateColumns {
			for _, pk := range t.PrimaryKey {
				if strings.EqualFold(uc, pk) {
					return fmt.Errorf("table %s: update_columns must not include primary key column %s", t.Source, pk)
				}
			}
		}
	}
	return nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
