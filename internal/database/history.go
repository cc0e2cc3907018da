package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/serialyear/internal/history"
)

// HistoryStore is a history.Store backed by the lookup_history table.
type HistoryStore struct {
	db  TxDB
	max int
}

// NewHistoryStore returns a store keeping at most max entries.
func NewHistoryStore(db TxDB, max int) *HistoryStore {
	if max <= 0 {
		max = history.DefaultMaxEntries
	}
	return &HistoryStore{db: db, max: max}
}

// Add records e unless it repeats the most recent entry. Older entries for
// the same query are replaced and the table is trimmed to the size limit,
// all in one transaction.
func (s *HistoryStore) Add(ctx context.Context, e history.Entry) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var lastBrand, lastSerial string
		err := tx.QueryRow(ctx,
			`SELECT brand, serial FROM lookup_history ORDER BY created_at DESC LIMIT 1`,
		).Scan(&lastBrand, &lastSerial)
		switch {
		case err == nil && lastBrand == e.Brand && lastSerial == e.Serial:
			return nil
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("read latest entry: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM lookup_history WHERE brand = $1 AND serial = $2`,
			e.Brand, e.Serial,
		); err != nil {
			return fmt.Errorf("replace entry: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO lookup_history (id, brand, serial, year, bp_index, ip_address, user_agent, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			toPgUUID(e.ID), e.Brand, e.Serial, toPgInt4(e.Year), e.Index,
			toPgText(e.IPAddress), toPgText(e.UserAgent),
			pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
		); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM lookup_history WHERE id NOT IN (
				SELECT id FROM lookup_history ORDER BY created_at DESC LIMIT $1
			)`,
			s.max,
		); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = s.max
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, brand, serial, year, bp_index, ip_address, user_agent, created_at
		 FROM lookup_history ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanHistoryRow)
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func scanHistoryRow(row pgx.CollectableRow) (history.Entry, error) {
	var (
		id        pgtype.UUID
		e         history.Entry
		year      pgtype.Int4
		ip, ua    pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &e.Brand, &e.Serial, &year, &e.Index, &ip, &ua, &createdAt); err != nil {
		return history.Entry{}, err
	}
	e.ID = uuidToString(id)
	e.Year = int4ToPtr(year)
	e.IPAddress = textToString(ip)
	e.UserAgent = textToString(ua)
	e.CreatedAt = createdAt.Time
	return e, nil
}

// Remove deletes every entry for brand and serial.
func (s *HistoryStore) Remove(ctx context.Context, brand, serial string) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM lookup_history WHERE brand = $1 AND serial = $2`,
		brand, serial,
	)
	if err != nil {
		return 0, fmt.Errorf("remove history: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Clear deletes all entries.
func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM lookup_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
