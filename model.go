package main

import "strings"

// SourceType is the engine-neutral type descriptor reported by the
// source metadata probe for a single column.
type SourceType string

const (
	TypeText    SourceType = "TEXT"
	TypeString  SourceType = "STRING"
	TypeDate    SourceType = "DATE"
	TypeTime    SourceType = "TIME"
	TypeInt     SourceType = "INT"
	TypeFloat   SourceType = "FLOAT"
	TypeDecimal SourceType = "DECIMAL"
	TypeBoolean SourceType = "BOOLEAN"
)

// Column describes one source column. Immutable once probed.
type Column struct {
	Name       string
	SourceType SourceType
}

// Override is a per-column configuration rule overriding default type
// inference or value formatting. Read-only during a run.
type Override struct {
	Type      string `toml:"type"`       // target type name, e.g. "STRING", "TIME"
	Length    int    `toml:"length"`     // bounded-text length (default 255)
	KeyLength int    `toml:"key_length"` // bounded-text length forced on key columns (default 100)
	Format    string `toml:"format"`     // Go time layout for TIME columns (default "3:04 PM")
}

// TableSpec drives schema synthesis and row shaping for one table.
// Built once per run from config plus the metadata probe; read-only after.
type TableSpec struct {
	SourceName      string
	DestinationName string
	Columns         []Column
	PrimaryKey      []string
	UniqueKeys      []string
	SortColumn      string
	UpdateColumns   []string
	Overrides       map[string]Override
}

// RawRow is one source row, values aligned positionally to Columns.
type RawRow []any

// NormalizedRow is a sink-ready row in the same column order. Audit
// timestamps are appended by the loader caller, not the normalizer.
type NormalizedRow []any

// override returns the override for a column, if any. Lookup is
// case-insensitive because some source engines report uppercase names.
func (t *TableSpec) override(col string) (Override, bool) {
	if o, ok := t.Overrides[col]; ok {
		return o, true
	}
	for name, o := range t.Overrides {
		if strings.EqualFold(name, col) {
			return o, true
		}
	}
	return Override{}, false
}

// isKeyColumn reports whether the column participates in the primary
// key or the unique key set.
func (t *TableSpec) isKeyColumn(col string) bool {
	for _, k := range t.PrimaryKey {
		if strings.EqualFold(k, col) {
			return true
		}
	}
	for _, k := range t.UniqueKeys {
		if strings.EqualFold(k, col) {
			return true
		}
	}
	return false
}

// cleanColumnName makes a source column name safe for the sink:
// surrounding whitespace is stripped and '#' becomes '_'.
func cleanColumnName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "#", "_")
}

func cleanedColumns(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = cleanColumnName(n)
	}
	return out
}
