package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBuildUpsert(t *testing.T) {
	spec := testSpec()
	got := buildUpsert(spec, 2)

	want := "INSERT INTO emp (id, name, hire_date, start_time, created_at, updated_at)\n" +
		"VALUES ($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12)\n" +
		"ON CONFLICT (id) DO UPDATE SET " +
		"name = EXCLUDED.name, hire_date = EXCLUDED.hire_date, " +
		"start_time = EXCLUDED.start_time, created_at = EXCLUDED.created_at, " +
		"updated_at = EXCLUDED.updated_at"
	if got != want {
		t.Errorf("query mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildUpsertNoPrimaryKey(t *testing.T) {
	spec := testSpec()
	spec.PrimaryKey = nil
	got := buildUpsert(spec, 1)

	if strings.Contains(got, "ON CONFLICT") {
		t.Errorf("keyless table must use plain insert:\n%s", got)
	}
	if !strings.HasSuffix(got, "($1, $2, $3, $4, $5, $6)") {
		t.Errorf("unexpected placeholder tail:\n%s", got)
	}
}

func TestBuildDeltaUpsert(t *testing.T) {
	spec := testSpec()
	spec.UpdateColumns = []string{"name"}
	got := buildDeltaUpsert(spec, 1)

	want := "INSERT INTO emp (id, name, hire_date, start_time, created_at, updated_at)\n" +
		"VALUES ($1, $2, $3, $4, $5, $6)\n" +
		"ON CONFLICT (id) DO UPDATE SET " +
		"name = EXCLUDED.name, updated_at = EXCLUDED.updated_at"
	if got != want {
		t.Errorf("query mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	// created_at must survive a sync conflict untouched.
	if strings.Contains(got, "created_at = EXCLUDED") {
		t.Errorf("delta upsert must not refresh created_at:\n%s", got)
	}
}

func TestBuildUpsertCleansKeyNames(t *testing.T) {
	spec := &TableSpec{
		DestinationName: "emp",
		Columns:         []Column{{Name: "EMP#ID", SourceType: TypeInt}, {Name: "name", SourceType: TypeString}},
		PrimaryKey:      []string{"EMP#ID"},
	}
	got := buildUpsert(spec, 1)
	if !strings.Contains(got, `ON CONFLICT ("EMP_ID")`) {
		t.Errorf("conflict target not cleaned:\n%s", got)
	}
	if strings.Contains(got, `"EMP_ID" = EXCLUDED`) {
		t.Errorf("key column must not be reassigned:\n%s", got)
	}
}

func TestFlattenRows(t *testing.T) {
	rows := []NormalizedRow{{1, "a"}, {2, "b"}}
	args := flattenRows(rows, 2)
	if len(args) != 4 {
		t.Fatalf("len(args) = %d, want 4", len(args))
	}
	if args[0] != 1 || args[3] != "b" {
		t.Errorf("args = %v", args)
	}
}

func TestExecBatchEmptyRowsIsNoop(t *testing.T) {
	sink := &fakeSink{failOn: func(string) error { return errors.New("must not be called") }}
	if err := loadBatch(context.Background(), sink, testSpec(), nil, discardLogger()); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestLoadBatchArgumentCount(t *testing.T) {
	sink := &fakeSink{}
	spec := testSpec()
	rows := []NormalizedRow{
		{int64(1), "Ada", nil, nil, "t0", "t0"},
		{int64(2), "Grace", nil, nil, "t0", "t0"},
	}
	if err := loadBatch(context.Background(), sink, spec, rows, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.queries) != 1 {
		t.Fatalf("exec count = %d, want 1", len(sink.queries))
	}
	if len(sink.args[0]) != 12 {
		t.Errorf("arg count = %d, want 12", len(sink.args[0]))
	}
}

func TestLoadBatchReportsFailure(t *testing.T) {
	sink := &fakeSink{failOn: func(string) error { return errors.New("deadlock") }}
	rows := []NormalizedRow{{int64(1), "Ada", nil, nil, "t0", "t0"}}
	err := loadBatch(context.Background(), sink, testSpec(), rows, discardLogger())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "emp") {
		t.Errorf("error should name the table: %v", err)
	}
}
