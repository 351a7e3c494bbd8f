package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "SELECT 1;", []string{"SELECT 1"}},
		{"two", "SELECT 1;\nSELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"no trailing semicolon", "SELECT 1", []string{"SELECT 1"}},
		{"empty statements dropped", ";;\n;SELECT 1;;", []string{"SELECT 1"}},
		{
			"semicolon inside string literal",
			"INSERT INTO t VALUES ('a;b'); SELECT 1;",
			[]string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"},
		},
		{
			"escaped quote inside string",
			"INSERT INTO t VALUES ('it''s; fine'); SELECT 1;",
			[]string{"INSERT INTO t VALUES ('it''s; fine')", "SELECT 1"},
		},
		{"blank input", "  \n\t ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExecHookFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pre.sql")
	if err := os.WriteFile(file, []byte("CREATE SCHEMA staging;\nSET search_path TO staging;"), 0o644); err != nil {
		t.Fatalf("write hook: %v", err)
	}

	sink := &fakeSink{}
	cfg := &Config{configDir: dir}
	if err := execHookFiles(context.Background(), sink, cfg, []string{"pre.sql"}, "before_copy", discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.queries) != 2 {
		t.Fatalf("exec count = %d, want 2", len(sink.queries))
	}
	if sink.queries[0] != "CREATE SCHEMA staging" {
		t.Errorf("first statement = %q", sink.queries[0])
	}
}

func TestExecHookFilesNoFilesIsNoop(t *testing.T) {
	sink := &fakeSink{failOn: func(string) error { return errors.New("must not be called") }}
	if err := execHookFiles(context.Background(), sink, &Config{}, nil, "before_copy", discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecHookFilesMissingFile(t *testing.T) {
	cfg := &Config{configDir: t.TempDir()}
	err := execHookFiles(context.Background(), &fakeSink{}, cfg, []string{"absent.sql"}, "after_copy", discardLogger())
	if err == nil || !strings.Contains(err.Error(), "absent.sql") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
}

func TestExecHookFilesStatementFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("SELECT 1; SELECT broken;"), 0o644); err != nil {
		t.Fatalf("write hook: %v", err)
	}

	sink := &fakeSink{failOn: func(sql string) error {
		if strings.Contains(sql, "broken") {
			return errors.New("syntax error")
		}
		return nil
	}}
	cfg := &Config{configDir: dir}
	err := execHookFiles(context.Background(), sink, cfg, []string{"bad.sql"}, "before_copy", discardLogger())
	if err == nil || !strings.Contains(err.Error(), "statement 2") {
		t.Fatalf("expected error naming statement 2, got %v", err)
	}
}
