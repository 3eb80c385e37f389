// Package db opens the registry database and runs its maintenance jobs.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS commitments (
    id TEXT PRIMARY KEY,
    scheme TEXT NOT NULL,
    commitment TEXT NOT NULL,
    published_at BIGINT NOT NULL,
    revealed BOOLEAN NOT NULL DEFAULT FALSE,
    input TEXT,
    pepper TEXT,
    revealed_at BIGINT
);
`

// InitPostgres opens dsn, checks the connection and creates the registry
// schema.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// CreateSchema creates the commitments table if it does not exist.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
