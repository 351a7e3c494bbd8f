package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// chunkFetcher is the slice of rowStream the orchestrator consumes,
// kept as an interface so tests can fake the source cursor.
type chunkFetcher interface {
	FetchChunk(n int) ([]RawRow, error)
	Close() error
}

// migrator drives the per-table copy and sync pipelines. One table's
// pipeline is single-threaded: fetch a chunk, normalize in memory, load,
// repeat. Parallelism only exists across distinct tables.
type migrator struct {
	src       SourceDB
	srcDB     *sql.DB
	sink      sinkExecutor
	badLog    *badRecordLog
	chunkSize int
	trimText  bool
	logger    *log.Logger
	now       func() time.Time
}

func newMigrator(src SourceDB, srcDB *sql.DB, sink sinkExecutor, cfg *Config) *migrator {
	return &migrator{
		src:       src,
		srcDB:     srcDB,
		sink:      sink,
		badLog:    newBadRecordLog(cfg.configDir),
		chunkSize: cfg.ChunkSize,
		trimText:  cfg.TrimText,
		logger:    log.Default(),
		now:       time.Now,
	}
}

// buildSpec resolves the table spec from configuration plus the source
// metadata probe. A probe failure aborts only this table's migration.
func (m *migrator) buildSpec(tc TableConfig) (*TableSpec, error) {
	cols, err := probeMetadata(m.srcDB, m.src, tc.Source)
	if err != nil {
		return nil, err
	}
	return &TableSpec{
		SourceName:      tc.Source,
		DestinationName: tc.Destination,
		Columns:         cols,
		PrimaryKey:      tc.PrimaryKey,
		UniqueKeys:      tc.UniqueKeys,
		SortColumn:      tc.SortColumn,
		UpdateColumns:   tc.UpdateColumns,
		Overrides:       tc.Overrides,
	}, nil
}

func (m *migrator) cutoff(tc TableConfig) *time.Time {
	if tc.SinceDays <= 0 || tc.SortColumn == "" {
		return nil
	}
	t := m.now().AddDate(0, 0, -tc.SinceDays)
	return &t
}

// copyTable runs the full/append copy flow for one table: probe
// metadata, synthesize schema, then stream, normalize, and upsert in
// chunks. Faulty column values degrade to NULL; the row still loads.
func (m *migrator) copyTable(ctx context.Context, tc TableConfig) error {
	spec, err := m.buildSpec(tc)
	if err != nil {
		return fmt.Errorf("table %s: %w", tc.Source, err)
	}

	if tc.Recreate {
		if err := dropTable(ctx, m.sink, spec.DestinationName); err != nil {
			return fmt.Errorf("table %s: %w", tc.Source, err)
		}
	}
	if err := ensureTable(ctx, m.sink, spec, m.logger); err != nil {
		return fmt.Errorf("table %s: %w", tc.Source, err)
	}

	stream, err := openRowStream(m.srcDB, m.src, spec, m.cutoff(tc), false)
	if err != nil {
		return fmt.Errorf("table %s: %w", tc.Source, err)
	}
	defer stream.Close()

	return m.copyRows(ctx, spec, stream)
}

// copyRows is the copy-flow chunk loop. A chunk fetch error skips that
// chunk and keeps going; a batch load error loses that batch only.
func (m *migrator) copyRows(ctx context.Context, spec *TableSpec, stream chunkFetcher) error {
	batchNum := 0
	for {
		chunk, err := stream.FetchChunk(m.chunkSize)
		if err != nil {
			m.logger.Printf("ERROR: fetch chunk from %s: %v (skipping)", spec.SourceName, err)
			continue
		}
		if len(chunk) == 0 {
			m.logger.Printf("no more rows to process for table %s", spec.SourceName)
			return nil
		}
		batchNum++

		rows := make([]NormalizedRow, 0, len(chunk))
		for _, raw := range chunk {
			row, _ := normalizeRow(raw, spec, m.trimText, m.logger)
			now := m.now()
			row = append(row, now, now)
			rows = append(rows, row)
		}

		m.logger.Printf("inserting batch %d into %s", batchNum, spec.DestinationName)
		// A load failure loses this batch only; execBatch already logged it.
		_ = loadBatch(ctx, m.sink, spec, rows, m.logger)
	}
}

// syncTable runs the differential update flow: same read path, but rows
// with a NULL sort column are excluded at the source, rows that fail
// normalization are diverted to the bad-record log, and conflicts only
// refresh the update_columns allow-list.
func (m *migrator) syncTable(ctx context.Context, tc TableConfig) error {
	spec, err := m.buildSpec(tc)
	if err != nil {
		return fmt.Errorf("table %s: %w", tc.Source, err)
	}

	if err := ensureTable(ctx, m.sink, spec, m.logger); err != nil {
		return fmt.Errorf("table %s: %w", tc.Source, err)
	}

	stream, err := openRowStream(m.srcDB, m.src, spec, m.cutoff(tc), true)
	if err != nil {
		return fmt.Errorf("table %s: %w", tc.Source, err)
	}
	defer stream.Close()

	return m.syncRows(ctx, spec, stream)
}

// syncRows is the sync-flow chunk loop.
func (m *migrator) syncRows(ctx context.Context, spec *TableSpec, stream chunkFetcher) error {
	for {
		chunk, err := stream.FetchChunk(m.chunkSize)
		if err != nil {
			m.logger.Printf("ERROR: fetch chunk from %s: %v (skipping)", spec.SourceName, err)
			continue
		}
		if len(chunk) == 0 {
			m.logger.Printf("no more rows to process for table %s", spec.SourceName)
			return nil
		}

		rows := make([]NormalizedRow, 0, len(chunk))
		var bad []RawRow
		for _, raw := range chunk {
			row, faults := normalizeRow(raw, spec, m.trimText, m.logger)
			if len(faults) > 0 {
				bad = append(bad, raw)
				continue
			}
			now := m.now()
			row = append(row, now, now)
			rows = append(rows, row)
		}

		if len(bad) > 0 {
			if err := m.badLog.Append(spec.DestinationName, bad); err != nil {
				m.logger.Printf("ERROR: %v", err)
			} else {
				m.logger.Printf("WARN: %d bad rows logged for %s", len(bad), spec.DestinationName)
			}
		}

		// A load failure loses this batch only; execBatch already logged it.
		_ = upsertBatch(ctx, m.sink, spec, rows, m.logger)
	}
}

// runTables migrates all configured tables, fanning out across workers.
// A failed table never aborts the others; the run reports the failures.
func (m *migrator) runTables(ctx context.Context, tables []TableConfig, workers int, sync bool) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	failed := make(chan string, len(tables))
	for _, tc := range tables {
		tc := tc
		g.Go(func() error {
			var err error
			if sync {
				err = m.syncTable(ctx, tc)
			} else {
				err = m.copyTable(ctx, tc)
			}
			if err != nil {
				m.logger.Printf("ERROR: %v", err)
				failed <- tc.Source
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	close(failed)

	if n := len(failed); n > 0 {
		return fmt.Errorf("%d of %d tables failed", n, len(tables))
	}
	return nil
}
