package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// badRecordLog is the append-only side channel for source rows that
// failed normalization during differential sync. One file per
// destination table, one raw record per line, for offline inspection.
type badRecordLog struct {
	dir string
}

func newBadRecordLog(dir string) *badRecordLog {
	return &badRecordLog{dir: dir}
}

func (l *badRecordLog) path(table string) string {
	return filepath.Join(l.dir, fmt.Sprintf("bad_records_%s.log", table))
}

// Append writes the raw rows to the table's bad-record file.
func (l *badRecordLog) Append(table string, rows []RawRow) error {
	if len(rows) == 0 {
		return nil
	}
	f, err := os.OpenFile(l.path(table), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open bad record log for %s: %w", table, err)
	}
	defer f.Close()

	for _, r := range rows {
		if _, err := fmt.Fprintf(f, "%v\n", []any(r)); err != nil {
			return fmt.Errorf("write bad record log for %s: %w", table, err)
		}
	}
	return nil
}
