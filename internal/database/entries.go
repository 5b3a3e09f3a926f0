package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/usageledger/internal/reconcile"
	"github.com/jgoulah/usageledger/pkg/models"
)

var _ reconcile.EntryRepository = (*DB)(nil)

const entryColumns = `id, page_key, period_year, unit, monthly, amount, payload, status, published, updated_at`

// Upsert saves an entry, keyed by its category and year. An empty entryID
// reuses the existing row or allocates a new id. Saving clears the
// published flag.
func (db *DB) Upsert(ctx context.Context, entryID string, in reconcile.EntryInput) (string, error) {
	if entryID == "" {
		entryID = uuid.NewString()
	}
	monthly := in.Monthly
	if monthly == nil {
		monthly = models.Monthly{}
	}
	monthlyJSON, err := json.Marshal(monthly)
	if err != nil {
		return "", fmt.Errorf("encoding monthly: %w", err)
	}

	query := `
	INSERT INTO entries (id, page_key, period_year, unit, monthly, amount, payload, status, published, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	ON CONFLICT(page_key, period_year) DO UPDATE SET
		unit = excluded.unit,
		monthly = excluded.monthly,
		amount = excluded.amount,
		payload = excluded.payload,
		status = excluded.status,
		published = 0,
		updated_at = excluded.updated_at
	RETURNING id
	`

	updatedAt := time.Now().UTC().Format(timeLayout)
	var id string
	err = db.conn.QueryRowContext(ctx, query,
		entryID, in.PageKey, in.Year, in.Unit, string(monthlyJSON), monthly.Total(),
		string(in.Payload), in.Status, updatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting entry: %w", err)
	}

	return id, nil
}

// Get retrieves the entry for a category and year, or nil if none exists
func (db *DB) Get(ctx context.Context, pageKey string, year int) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE page_key = ? AND period_year = ?`

	entry, err := scanEntry(db.conn.QueryRowContext(ctx, query, pageKey, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return entry, nil
}

// Delete removes an entry and any file metadata still attached to it
func (db *DB) Delete(ctx context.Context, entryID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

// ListEntries retrieves entries ordered by year and category. A year of 0
// lists every year.
func (db *DB) ListEntries(ctx context.Context, year int) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries`
	var args []any
	if year > 0 {
		query += ` WHERE period_year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY period_year DESC, page_key`

	return db.queryEntries(ctx, query, args...)
}

// ListUnpublished retrieves submitted entries not yet published
func (db *DB) ListUnpublished(ctx context.Context) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
	WHERE published = 0 AND status = ?
	ORDER BY period_year DESC, page_key`

	return db.queryEntries(ctx, query, models.StatusSubmitted)
}

// MarkPublished marks an entry as published
func (db *DB) MarkPublished(ctx context.Context, entryID string) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE entries SET published = 1 WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("marking entry as published: %w", err)
	}
	return nil
}

func (db *DB) queryEntries(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var results []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *entry)
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var e models.Entry
	var monthlyJSON, updatedAt string
	var payload sql.NullString

	if err := row.Scan(&e.ID, &e.PageKey, &e.Year, &e.Unit, &monthlyJSON, &e.Amount, &payload, &e.Status, &e.Published, &updatedAt); err != nil {
		return nil, err
	}

	e.Monthly = models.Monthly{}
	if err := json.Unmarshal([]byte(monthlyJSON), &e.Monthly); err != nil {
		return nil, fmt.Errorf("parsing monthly: %w", err)
	}
	if payload.Valid && payload.String != "" {
		e.Payload = json.RawMessage(payload.String)
	}

	var err error
	e.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &e, nil
}
