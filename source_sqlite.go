package main

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

type sqliteSource struct{}

func (s *sqliteSource) Name() string { return "SQLite" }

func (s *sqliteSource) OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteReadOnlyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (s *sqliteSource) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TypeDescriptor maps a declared SQLite column type to the neutral
// descriptor. SQLite reports the declared type verbatim, so matching is
// by prefix in affinity order.
func (s *sqliteSource) TypeDescriptor(dbTypeName string) SourceType {
	t := strings.ToUpper(strings.TrimSpace(dbTypeName))
	switch {
	case strings.HasPrefix(t, "VARCHAR"), strings.HasPrefix(t, "CHAR"), strings.HasPrefix(t, "NVARCHAR"):
		return TypeString
	case t == "DATE" || strings.HasPrefix(t, "DATETIME") || strings.HasPrefix(t, "TIMESTAMP"):
		return TypeDate
	case t == "TIME":
		return TypeTime
	case strings.HasPrefix(t, "BOOL"):
		return TypeBoolean
	case strings.Contains(t, "INT"):
		return TypeInt
	case strings.HasPrefix(t, "REAL"), strings.HasPrefix(t, "FLOA"), strings.HasPrefix(t, "DOUB"):
		return TypeFloat
	case strings.HasPrefix(t, "DECIMAL"), strings.HasPrefix(t, "NUMERIC"):
		return TypeDecimal
	default:
		return TypeText
	}
}

// sqliteReadOnlyURI forces read-only mode on the source database file.
func sqliteReadOnlyURI(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&mode=ro"
	}
	return dsn + "?mode=ro"
}
