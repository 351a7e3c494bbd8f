package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[source]
type = "sqlite"
dsn = "data.db"

[target]
dsn = "postgres://localhost/dest"

[[tables]]
source = "EMPLOYEES"
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want 1000", cfg.ChunkSize)
	}
	if cfg.Workers < 1 || cfg.Workers > 8 {
		t.Errorf("Workers = %d, want 1..8", cfg.Workers)
	}
	if got := cfg.Tables[0].Destination; got != "employees" {
		t.Errorf("Destination = %q, want lowercased source", got)
	}
	if cfg.configDir != filepath.Dir(path) {
		t.Errorf("configDir = %q, want %q", cfg.configDir, filepath.Dir(path))
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
workers = 3
chunk_size = 250
trim_text = true

[source]
type = "mysql"
dsn = "user:pw@tcp(db:3306)/hr"

[target]
dsn = "postgres://localhost/dest"

[hooks]
before_copy = ["pre.sql"]
after_copy = ["post.sql"]

[[tables]]
source = "EMP"
destination = "staff"
primary_key = ["id"]
unique_keys = ["badge"]
sort_column = "updated"
update_columns = ["name"]
since_days = 30

[tables.overrides.badge]
type = "TEXT"
key_length = 40
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Workers != 3 || cfg.ChunkSize != 250 || !cfg.TrimText {
		t.Errorf("top-level options = %d/%d/%v", cfg.Workers, cfg.ChunkSize, cfg.TrimText)
	}
	tc := cfg.Tables[0]
	if tc.Destination != "staff" || tc.SinceDays != 30 {
		t.Errorf("table = %+v", tc)
	}
	ov, ok := tc.Overrides["badge"]
	if !ok || ov.Type != "TEXT" || ov.KeyLength != 40 {
		t.Errorf("override = %+v (found %v)", ov, ok)
	}
	if len(cfg.Hooks.BeforeCopy) != 1 || len(cfg.Hooks.AfterCopy) != 1 {
		t.Errorf("hooks = %+v", cfg.Hooks)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, minimalConfig+"\nbatch_sise = 10\n")
	_, err := loadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "batch_sise") {
		t.Fatalf("expected unknown-key error naming the key, got %v", err)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"missing source type",
			`[source]
dsn = "d"
[target]
dsn = "t"
[[tables]]
source = "E"`,
			"source.type",
		},
		{
			"bad source type",
			`[source]
type = "oracle"
dsn = "d"
[target]
dsn = "t"
[[tables]]
source = "E"`,
			"unsupported source type",
		},
		{
			"missing target dsn",
			`[source]
type = "sqlite"
dsn = "d"
[target]
dsn = ""
[[tables]]
source = "E"`,
			"target.dsn",
		},
		{
			"no tables",
			`[source]
type = "sqlite"
dsn = "d"
[target]
dsn = "t"`,
			"tables",
		},
		{
			"table without source",
			`[source]
type = "sqlite"
dsn = "d"
[target]
dsn = "t"
[[tables]]
destination = "x"`,
			"source is required",
		},
		{
			"since_days without sort_column",
			`[source]
type = "sqlite"
dsn = "d"
[target]
dsn = "t"
[[tables]]
source = "E"
since_days = 7`,
			"sort_column",
		},
		{
			"negative since_days",
			`[source]
type = "sqlite"
dsn = "d"
[target]
dsn = "t"
[[tables]]
source = "E"
sort_column = "u"
since_days = -1`,
			"negative",
		},
		{
			"zero chunk size",
			`chunk_size = -5
[source]
type = "sqlite"
dsn = "d"
[target]
dsn = "t"
[[tables]]
source = "E"`,
			"chunk_size",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			_, err := loadConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateForSync(t *testing.T) {
	base := func() *Config {
		return &Config{Tables: []TableConfig{{
			Source:        "EMP",
			SortColumn:    "updated",
			PrimaryKey:    []string{"id"},
			UpdateColumns: []string{"name"},
		}}}
	}

	if err := base().validateForSync(); err != nil {
		t.Fatalf("valid sync config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no sort column", func(c *Config) { c.Tables[0].SortColumn = "" }, "sort_column"},
		{"no primary key", func(c *Config) { c.Tables[0].PrimaryKey = nil }, "primary_key"},
		{"no update columns", func(c *Config) { c.Tables[0].UpdateColumns = nil }, "update_columns"},
		{"update columns include key", func(c *Config) { c.Tables[0].UpdateColumns = []string{"ID"} }, "primary key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validateForSync()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{configDir: "/etc/tablesync"}
	if got := cfg.resolvePath("hooks/pre.sql"); got != filepath.Join("/etc/tablesync", "hooks/pre.sql") {
		t.Errorf("relative path = %q", got)
	}
	if got := cfg.resolvePath("/abs/pre.sql"); got != "/abs/pre.sql" {
		t.Errorf("absolute path = %q", got)
	}
}
