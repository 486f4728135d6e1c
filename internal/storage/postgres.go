package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresAdapter stores documents in a two-column table. Intended for
// server deployments where the API fronts a shared database.
type PostgresAdapter struct {
	db *sql.DB
}

// NewPostgresAdapter connects to Postgres and ensures the documents table exists
func NewPostgresAdapter(databaseURL string) (*PostgresAdapter, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &PostgresAdapter{db: db}
	if err := a.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

// Close closes the database connection
func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}

func (a *PostgresAdapter) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        key TEXT PRIMARY KEY,
        doc JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the document for key
func (a *PostgresAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc []byte
	row := a.db.QueryRowContext(ctx, `SELECT doc FROM documents WHERE key = $1`, key)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, true, nil
}

// Set upserts the document for key
func (a *PostgresAdapter) Set(ctx context.Context, key string, doc []byte) error {
	query := `
        INSERT INTO documents (key, doc, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
    `
	if _, err := a.db.ExecContext(ctx, query, key, doc); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Remove deletes the document for key
func (a *PostgresAdapter) Remove(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}
