package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/split2ynab/backend/internal/models"
)

// JournalStore records every committed import id with the source update it
// carried. The newest row doubles as the watermark.
type JournalStore struct {
	db *sql.DB
}

// NewJournalStore creates a journal store over an open database
func NewJournalStore(db *sql.DB) *JournalStore {
	return &JournalStore{db: db}
}

const upsertExpenseQuery = `
	INSERT INTO expenses (id, updated) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET updated = excluded.updated
	WHERE excluded.updated > expenses.updated`

// Latest returns MAX(updated). ok is false for an empty journal.
func (s *JournalStore) Latest(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(updated) FROM expenses`).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read journal watermark: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}

	t, err := models.ParseWatermark(latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse watermark %q: %w", latest.String, err)
	}
	return t, true, nil
}

// Advance upserts one row per record inside a single transaction
func (s *JournalStore) Advance(ctx context.Context, records []models.SyncRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertExpenseQuery)
	if err != nil {
		return fmt.Errorf("prepare journal upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Transaction.ImportID, models.FormatWatermark(r.UpdatedAt)); err != nil {
			return fmt.Errorf("record %s: %w", r.Transaction.ImportID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal: %w", err)
	}
	return nil
}

// Contains reports whether importID has been journaled
func (s *JournalStore) Contains(ctx context.Context, importID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM expenses WHERE id = $1)`, importID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check journal for %s: %w", importID, err)
	}
	return exists, nil
}

// ImportIDs lists every journaled import id
func (s *JournalStore) ImportIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM expenses ORDER BY updated, id`)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Lookup reads a bootstrap value from the settings table; a missing key is ""
func (s *JournalStore) Lookup(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", key, err)
	}
	return value, nil
}
