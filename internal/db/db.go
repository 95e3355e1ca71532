// Package db opens the external stores the state journal writes to.
package db

import (
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS state_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at TEXT    NOT NULL,
	event       TEXT    NOT NULL,
	payload     TEXT    NOT NULL
);`

// OpenJournal opens (or creates) the SQLite journal database and verifies
// its schema.
func OpenJournal(path string) (*sqlx.DB, error) {
	pool, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if _, err := pool.Exec(journalSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("verify journal schema: %w", err)
	}
	return pool, nil
}
