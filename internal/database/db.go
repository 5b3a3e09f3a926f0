package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(1) // sqlite allows one writer

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		page_key TEXT NOT NULL,
		period_year INTEGER NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		monthly TEXT NOT NULL DEFAULT '{}',
		amount REAL NOT NULL DEFAULT 0,
		payload TEXT,
		status TEXT NOT NULL,
		published INTEGER DEFAULT 0,
		updated_at TEXT NOT NULL,
		UNIQUE(page_key, period_year)
	);
	CREATE TABLE IF NOT EXISTS evidence_files (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		file_path TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		record_id TEXT,
		month INTEGER,
		record_index INTEGER,
		mime_type TEXT,
		file_size INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS evidence_file_records (
		file_id TEXT NOT NULL REFERENCES evidence_files(id) ON DELETE CASCADE,
		record_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (file_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_year ON entries(period_year);
	CREATE INDEX IF NOT EXISTS idx_entries_published ON entries(published);
	CREATE INDEX IF NOT EXISTS idx_files_entry ON evidence_files(entry_id);
	CREATE INDEX IF NOT EXISTS idx_file_records_record ON evidence_file_records(record_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}
