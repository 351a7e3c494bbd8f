package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// sinkExecutor is the slice of pgxpool.Pool the DDL and DML layers need,
// kept as an interface so tests run without a live database.
type sinkExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// pgReservedWords are PostgreSQL reserved words that must be quoted as identifiers.
var pgReservedWords = map[string]bool{
	"all": true, "analyse": true, "analyze": true, "and": true, "any": true,
	"array": true, "as": true, "asc": true, "authorization": true, "between": true,
	"binary": true, "both": true, "case": true, "cast": true, "check": true,
	"collate": true, "column": true, "constraint": true, "create": true, "cross": true,
	"current_date": true, "current_role": true, "current_time": true,
	"current_timestamp": true, "current_user": true, "default": true, "deferrable": true,
	"desc": true, "distinct": true, "do": true, "else": true, "end": true, "except": true,
	"false": true, "fetch": true, "for": true, "foreign": true, "freeze": true,
	"from": true, "full": true, "grant": true, "group": true, "having": true,
	"ilike": true, "in": true, "initially": true, "inner": true, "intersect": true,
	"into": true, "is": true, "isnull": true, "join": true, "lateral": true,
	"leading": true, "left": true, "like": true, "limit": true, "localtime": true,
	"localtimestamp": true, "natural": true, "not": true, "notnull": true, "null": true,
	"offset": true, "on": true, "only": true, "or": true, "order": true, "outer": true,
	"overlaps": true, "placing": true, "primary": true, "references": true,
	"returning": true, "right": true, "select": true, "session_user": true,
	"similar": true, "some": true, "symmetric": true, "table": true, "then": true,
	"to": true, "trailing": true, "true": true, "union": true, "unique": true,
	"user": true, "using": true, "variadic": true, "verbose": true, "when": true,
	"where": true, "window": true, "with": true,
}

// pgNeedsQuoting reports whether a PG identifier needs quoting beyond
// reserved-word checks (e.g. contains hyphens, spaces, uppercase, etc.).
func pgNeedsQuoting(name string) bool {
	for i, r := range name {
		if r >= 'a' && r <= 'z' || r == '_' {
			continue
		}
		if i > 0 && (r >= '0' && r <= '9' || r == '$') {
			continue
		}
		return true
	}
	return false
}

// pgIdent returns a PG-safe identifier, quoting reserved words and names
// that contain characters invalid in unquoted identifiers.
func pgIdent(name string) string {
	if pgReservedWords[name] || pgNeedsQuoting(name) {
		return `"` + name + `"`
	}
	return name
}

// quotedColumnList joins column names with proper quoting.
func quotedColumnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// generateCreateTable produces the CREATE TABLE IF NOT EXISTS statement
// for a table spec: mapped columns in source order, the two audit
// columns, then composite primary-key and unique clauses.
func generateCreateTable(spec *TableSpec) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", pgIdent(spec.DestinationName))

	for _, col := range spec.Columns {
		ov, hasOv := spec.override(col.Name)
		pgType, err := mapSinkType(col, ov, hasOv, spec.isKeyColumn(col.Name))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s %s,\n", pgIdent(cleanColumnName(col.Name)), pgType)
	}

	b.WriteString("  created_at timestamptz NOT NULL DEFAULT CURRENT_TIMESTAMP,\n")
	b.WriteString("  updated_at timestamptz NOT NULL DEFAULT CURRENT_TIMESTAMP")

	if len(spec.PrimaryKey) > 0 {
		fmt.Fprintf(&b, ",\n  PRIMARY KEY (%s)", quotedColumnList(cleanedColumns(spec.PrimaryKey)))
	}
	if len(spec.UniqueKeys) > 0 {
		fmt.Fprintf(&b, ",\n  UNIQUE (%s)", quotedColumnList(cleanedColumns(spec.UniqueKeys)))
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// ensureTable creates the destination table if absent, plus the trigger
// that refreshes updated_at on every row update. A creation failure is
// logged and swallowed; a malformed override propagates as a hard
// failure before any DDL is issued.
func ensureTable(ctx context.Context, sink sinkExecutor, spec *TableSpec, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	ddl, err := generateCreateTable(spec)
	if err != nil {
		return err
	}

	logger.Printf("creating table %s (if absent)", spec.DestinationName)
	if _, err := sink.Exec(ctx, ddl); err != nil {
		logger.Printf("ERROR: create table %s: %v", spec.DestinationName, err)
		return nil
	}

	for _, q := range updatedAtTriggerStatements(spec.DestinationName) {
		if _, err := sink.Exec(ctx, q); err != nil {
			logger.Printf("ERROR: updated_at trigger for %s: %v", spec.DestinationName, err)
			return nil
		}
	}
	return nil
}

// updatedAtTriggerStatements replicates MySQL's ON UPDATE
// CURRENT_TIMESTAMP for the updated_at audit column.
func updatedAtTriggerStatements(table string) []string {
	trigName := fmt.Sprintf("trg_%s_updated_at", table)
	return []string{
		`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS TRIGGER AS $fn$ BEGIN NEW.updated_at = CURRENT_TIMESTAMP; RETURN NEW; END; $fn$ LANGUAGE plpgsql`,
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", pgIdent(trigName), pgIdent(table)),
		fmt.Sprintf("CREATE TRIGGER %s BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION set_updated_at()",
			pgIdent(trigName), pgIdent(table)),
	}
}

// dropTable removes the destination table when a table is configured
// with recreate = true.
func dropTable(ctx context.Context, sink sinkExecutor, table string) error {
	q := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgIdent(table))
	if _, err := sink.Exec(ctx, q); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}
