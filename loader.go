package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// sinkColumns returns the full sink column list for DML: cleaned source
// columns in declared order plus the trailing audit columns.
func sinkColumns(spec *TableSpec) []string {
	cols := make([]string, 0, len(spec.Columns)+2)
	for _, c := range spec.Columns {
		cols = append(cols, cleanColumnName(c.Name))
	}
	return append(cols, "created_at", "updated_at")
}

// buildUpsert produces the multi-row insert statement for the full-copy
// path. On conflict over the primary key, every non-key column
// (audit columns included) is overwritten with the incoming value.
// Without a primary key it degrades to a plain insert.
func buildUpsert(spec *TableSpec, numRows int) string {
	cols := sinkColumns(spec)
	var b strings.Builder

	fmt.Fprintf(&b, "INSERT INTO %s (%s)\nVALUES ", pgIdent(spec.DestinationName), quotedColumnList(cols))
	writeValuePlaceholders(&b, numRows, len(cols))

	if len(spec.PrimaryKey) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\nON CONFLICT (%s) DO UPDATE SET ", quotedColumnList(cleanedColumns(spec.PrimaryKey)))
	var assigns []string
	for _, c := range cols {
		if containsFold(spec.PrimaryKey, c) {
			continue
		}
		assigns = append(assigns, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(c), pgIdent(c)))
	}
	b.WriteString(strings.Join(assigns, ", "))
	return b.String()
}

// buildDeltaUpsert produces the differential-sync variant: on conflict,
// only the update_columns allow-list plus updated_at are refreshed.
// created_at and everything outside the allow-list stay untouched.
func buildDeltaUpsert(spec *TableSpec, numRows int) string {
	cols := sinkColumns(spec)
	var b strings.Builder

	fmt.Fprintf(&b, "INSERT INTO %s (%s)\nVALUES ", pgIdent(spec.DestinationName), quotedColumnList(cols))
	writeValuePlaceholders(&b, numRows, len(cols))

	fmt.Fprintf(&b, "\nON CONFLICT (%s) DO UPDATE SET ", quotedColumnList(cleanedColumns(spec.PrimaryKey)))
	assigns := make([]string, 0, len(spec.UpdateColumns)+1)
	for _, c := range spec.UpdateColumns {
		c = cleanColumnName(c)
		assigns = append(assigns, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(c), pgIdent(c)))
	}
	assigns = append(assigns, "updated_at = EXCLUDED.updated_at")
	b.WriteString(strings.Join(assigns, ", "))
	return b.String()
}

// writeValuePlaceholders appends "($1, $2, ...), ($n+1, ...)" tuples.
func writeValuePlaceholders(b *strings.Builder, numRows, numCols int) {
	n := 1
	for r := 0; r < numRows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < numCols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
}

// flattenRows lays batch rows out as one flat argument list matching the
// numbered placeholders.
func flattenRows(rows []NormalizedRow, numCols int) []any {
	args := make([]any, 0, len(rows)*numCols)
	for _, r := range rows {
		args = append(args, r...)
	}
	return args
}

// loadBatch executes the full-copy upsert for one batch. The whole batch
// is one statement and one commit; a failure loses the batch (no
// partial-row retry) and is reported to the caller after logging.
func loadBatch(ctx context.Context, sink sinkExecutor, spec *TableSpec, rows []NormalizedRow, logger *log.Logger) error {
	return execBatch(ctx, sink, spec, rows, buildUpsert(spec, len(rows)), logger)
}

// upsertBatch executes the differential-sync upsert for one batch.
func upsertBatch(ctx context.Context, sink sinkExecutor, spec *TableSpec, rows []NormalizedRow, logger *log.Logger) error {
	return execBatch(ctx, sink, spec, rows, buildDeltaUpsert(spec, len(rows)), logger)
}

func execBatch(ctx context.Context, sink sinkExecutor, spec *TableSpec, rows []NormalizedRow, query string, logger *log.Logger) error {
	if len(rows) == 0 {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}

	args := flattenRows(rows, len(sinkColumns(spec)))
	if _, err := sink.Exec(ctx, query, args...); err != nil {
		logger.Printf("ERROR: load batch of %d rows into %s: %v", len(rows), spec.DestinationName, err)
		return fmt.Errorf("load batch into %s: %w", spec.DestinationName, err)
	}
	logger.Printf("batch of %d rows committed to %s", len(rows), spec.DestinationName)
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(cleanColumnName(v), s) {
			return true
		}
	}
	return false
}
