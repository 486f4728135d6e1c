package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter stores documents in a single-file SQLite database. This is
// the default driver: scan results stay on the user's device.
type SQLiteAdapter struct {
	db *sql.DB
}

// NewSQLiteAdapter opens (creating if needed) the database at dbPath
func NewSQLiteAdapter(dbPath string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &SQLiteAdapter{db: db}
	if err := a.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

// Close closes the underlying database
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

func (a *SQLiteAdapter) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        key TEXT PRIMARY KEY,
        doc BLOB NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the document for key
func (a *SQLiteAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc []byte
	row := a.db.QueryRowContext(ctx, `SELECT doc FROM documents WHERE key = ?`, key)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, true, nil
}

// Set upserts the document for key
func (a *SQLiteAdapter) Set(ctx context.Context, key string, doc []byte) error {
	query := `
        INSERT INTO documents (key, doc, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
    `
	if _, err := a.db.ExecContext(ctx, query, key, doc, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Remove deletes the document for key
func (a *SQLiteAdapter) Remove(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}
