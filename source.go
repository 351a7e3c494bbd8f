package main

import (
	"database/sql"
	"fmt"
	"time"
)

// SourceDB abstracts the read-only source engine so the sync core can
// serve multiple drivers (MySQL, SQLite).
type SourceDB interface {
	// Name returns a human-readable name for the source ("MySQL", "SQLite").
	Name() string

	// OpenDB opens a database connection with driver-specific read options.
	OpenDB(dsn string) (*sql.DB, error)

	// QuoteIdentifier quotes a source identifier for use in queries.
	QuoteIdentifier(name string) string

	// TypeDescriptor maps a driver-reported column type name to the
	// engine-neutral source type.
	TypeDescriptor(dbTypeName string) SourceType
}

// newSourceDB returns a SourceDB implementation for the given source type.
func newSourceDB(sourceType string) (SourceDB, error) {
	switch sourceType {
	case "mysql":
		return &mysqlSource{}, nil
	case "sqlite":
		return &sqliteSource{}, nil
	default:
		return nil, fmt.Errorf("unsupported source type %q (must be mysql or sqlite)", sourceType)
	}
}

// probeMetadata fetches the ordered column descriptors for a source
// table via a zero-row probe query.
func probeMetadata(db *sql.DB, src SourceDB, table string) ([]Column, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s WHERE 1=0", src.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("probe metadata for %s: %w", table, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("probe metadata for %s: %w", table, err)
	}

	cols := make([]Column, 0, len(colTypes))
	for _, ct := range colTypes {
		cols = append(cols, Column{
			Name:       ct.Name(),
			SourceType: src.TypeDescriptor(ct.DatabaseTypeName()),
		})
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("probe metadata for %s: no columns", table)
	}
	return cols, rows.Err()
}

// rowStream is a chunked cursor over one source table, ordered by the
// sort column. Values are scanned as driver-neutral Go values with
// []byte coerced to string.
type rowStream struct {
	rows      *sql.Rows
	numCols   int
	exhausted bool
}

// openRowStream starts the source read for a table. When cutoff is
// non-nil only rows with sortColumn > cutoff are returned; when
// excludeNullSort is set, rows with a NULL sort column are filtered out
// (they cannot be watermark-ordered).
func openRowStream(db *sql.DB, src SourceDB, spec *TableSpec, cutoff *time.Time, excludeNullSort bool) (*rowStream, error) {
	query := fmt.Sprintf("SELECT * FROM %s", src.QuoteIdentifier(spec.SourceName))
	var args []any

	sortCol := ""
	if spec.SortColumn != "" {
		sortCol = src.QuoteIdentifier(spec.SortColumn)
	}

	var conds []string
	if excludeNullSort && sortCol != "" {
		conds = append(conds, fmt.Sprintf("%s IS NOT NULL", sortCol))
	}
	if cutoff != nil && sortCol != "" {
		conds = append(conds, fmt.Sprintf("%s > ?", sortCol))
		args = append(args, cutoff.Format(dateISOLayout))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	if sortCol != "" {
		query += " ORDER BY " + sortCol
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.SourceName, err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read %s: %w", spec.SourceName, err)
	}

	return &rowStream{rows: rows, numCols: len(cols)}, nil
}

// FetchChunk returns up to n rows. An empty chunk with a nil error means
// the stream is exhausted. A scan error covers that chunk only: the
// partial chunk is discarded and the next call continues the cursor.
// A cursor-level error (rows.Err) also marks the stream exhausted, since
// a dead cursor cannot resume; the caller's skip applies to at most one
// such failure before the table's read ends.
func (s *rowStream) FetchChunk(n int) ([]RawRow, error) {
	if s.exhausted {
		return nil, nil
	}

	chunk := make([]RawRow, 0, n)
	for len(chunk) < n && s.rows.Next() {
		vals := make([]any, s.numCols)
		ptrs := make([]any, s.numCols)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := s.rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		chunk = append(chunk, RawRow(vals))
	}

	if len(chunk) < n {
		s.exhausted = true
		if err := s.rows.Err(); err != nil {
			return chunk, fmt.Errorf("fetch rows: %w", err)
		}
	}
	return chunk, nil
}

func (s *rowStream) Close() error {
	return s.rows.Close()
}
