package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jgoulah/usageledger/pkg/models"
)

const fileColumns = `id, entry_id, file_path, file_name, file_type, record_id, month, record_index, mime_type, file_size, created_at`

// InsertFile stores evidence file metadata. Each member of a comma-joined
// record_id also gets a row in evidence_file_records.
func (db *DB) InsertFile(ctx context.Context, f models.EvidenceFile) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var recordIndex sql.NullInt64
	if f.RecordIndex != nil {
		recordIndex = sql.NullInt64{Int64: int64(*f.RecordIndex), Valid: true}
	}
	var month sql.NullInt64
	if f.Month != 0 {
		month = sql.NullInt64{Int64: int64(f.Month), Valid: true}
	}

	query := `
	INSERT INTO evidence_files (` + fileColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		f.ID, f.EntryID, f.Path, f.FileName, f.FileType, nullString(f.RecordID), month, recordIndex,
		f.MimeType, f.FileSize, createdAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting evidence file: %w", err)
	}

	for pos, rid := range f.RecordIDs() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evidence_file_records (file_id, record_id, position) VALUES (?, ?, ?)`,
			f.ID, rid, pos)
		if err != nil {
			return fmt.Errorf("inserting file record link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing evidence file: %w", err)
	}
	return nil
}

// GetFile retrieves file metadata by id, or nil if none exists
func (db *DB) GetFile(ctx context.Context, id string) (*models.EvidenceFile, error) {
	query := `SELECT ` + fileColumns + ` FROM evidence_files WHERE id = ?`

	f, err := scanFile(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying evidence file: %w", err)
	}
	return f, nil
}

// DeleteFile removes file metadata and its record links
func (db *DB) DeleteFile(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM evidence_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting evidence file: %w", err)
	}
	return nil
}

// ListFiles retrieves every file of an entry in upload order
func (db *DB) ListFiles(ctx context.Context, entryID string) ([]models.EvidenceFile, error) {
	query := `SELECT ` + fileColumns + ` FROM evidence_files WHERE entry_id = ? ORDER BY created_at, rowid`
	return db.queryFiles(ctx, query, entryID)
}

// FilesForRecord retrieves the files of an entry whose record_id lists
// recordID, using the record link table.
func (db *DB) FilesForRecord(ctx context.Context, entryID, recordID string) ([]models.EvidenceFile, error) {
	query := `
	SELECT ` + prefixed("f.", fileColumns) + `
	FROM evidence_files f
	JOIN evidence_file_records r ON r.file_id = f.id
	WHERE f.entry_id = ? AND r.record_id = ?
	ORDER BY f.created_at, f.rowid
	`
	return db.queryFiles(ctx, query, entryID, recordID)
}

func (db *DB) queryFiles(ctx context.Context, query string, args ...any) ([]models.EvidenceFile, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying evidence files: %w", err)
	}
	defer rows.Close()

	var results []models.EvidenceFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *f)
	}

	return results, rows.Err()
}

func scanFile(row scanner) (*models.EvidenceFile, error) {
	var f models.EvidenceFile
	var recordID, mimeType sql.NullString
	var month, recordIndex sql.NullInt64
	var createdAt string

	err := row.Scan(&f.ID, &f.EntryID, &f.Path, &f.FileName, &f.FileType, &recordID, &month, &recordIndex,
		&mimeType, &f.FileSize, &createdAt)
	if err != nil {
		return nil, err
	}

	f.RecordID = recordID.String
	f.MimeType = mimeType.String
	if month.Valid {
		f.Month = int(month.Int64)
	}
	if recordIndex.Valid {
		idx := int(recordIndex.Int64)
		f.RecordIndex = &idx
	}

	f.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func prefixed(prefix, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}
