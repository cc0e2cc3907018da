package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/serialyear/internal/core"
)

// LoadStore writes one row per source load. It implements core.LoadRecorder.
type LoadStore struct {
	db DBTX
}

// NewLoadStore returns a LoadStore using db.
func NewLoadStore(db DBTX) *LoadStore {
	return &LoadStore{db: db}
}

const insertLoadSQL = `
INSERT INTO source_loads (
	id, source, loaded_at, duration_ms, bytes, brands, breakpoints, anomalies,
	lines, skipped_blank, skipped_na, skipped_orphan, error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// RecordLoad stores rec.
func (s *LoadStore) RecordLoad(ctx context.Context, rec core.LoadRecord) error {
	_, err := s.db.Exec(ctx, insertLoadSQL,
		toPgUUID(rec.ID),
		rec.Source,
		pgtype.Timestamptz{Time: rec.LoadedAt, Valid: true},
		rec.Duration.Milliseconds(),
		rec.Bytes,
		rec.Brands,
		rec.Breakpoints,
		rec.Anomalies,
		rec.Stats.Lines,
		rec.Stats.BlankSkipped,
		rec.Stats.NotAvailableSkipped,
		rec.Stats.OrphanSkipped,
		toPgText(rec.Err),
	)
	if err != nil {
		return fmt.Errorf("record load %s: %w", rec.ID, err)
	}
	return nil
}

const recentLoadsSQL = `
SELECT id, source, loaded_at, duration_ms, bytes, brands, breakpoints, anomalies,
	lines, skipped_blank, skipped_na, skipped_orphan, error
FROM source_loads
ORDER BY loaded_at DESC
LIMIT $1`

// RecentLoads returns the latest limit load records, newest first.
func (s *LoadStore) RecentLoads(ctx context.Context, limit int) ([]core.LoadRecord, error) {
	rows, err := s.db.Query(ctx, recentLoadsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}
	recs, err := pgx.CollectRows(rows, scanLoadRow)
	if err != nil {
		return nil, fmt.Errorf("scan loads: %w", err)
	}
	return recs, nil
}

func scanLoadRow(row pgx.CollectableRow) (core.LoadRecord, error) {
	var (
		id         pgtype.UUID
		rec        core.LoadRecord
		loadedAt   pgtype.Timestamptz
		durationMs int64
		errText    pgtype.Text
	)
	err := row.Scan(
		&id, &rec.Source, &loadedAt, &durationMs, &rec.Bytes,
		&rec.Brands, &rec.Breakpoints, &rec.Anomalies,
		&rec.Stats.Lines, &rec.Stats.BlankSkipped, &rec.Stats.NotAvailableSkipped, &rec.Stats.OrphanSkipped,
		&errText,
	)
	if err != nil {
		return core.LoadRecord{}, err
	}
	rec.ID = uuidToString(id)
	rec.LoadedAt = loadedAt.Time
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	rec.Err = textToString(errText)
	return rec, nil
}
