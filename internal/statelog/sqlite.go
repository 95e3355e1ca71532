package statelog

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLiteSink appends events to the state_events table for offline replay.
type SQLiteSink struct {
	pool *sqlx.DB
}

// NewSQLiteSink wraps an opened journal database (see db.OpenJournal). The
// sink owns the pool and closes it.
func NewSQLiteSink(pool *sqlx.DB) *SQLiteSink {
	return &SQLiteSink{pool: pool}
}

func (s *SQLiteSink) Write(ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(
		`INSERT INTO state_events (occurred_at, event, payload) VALUES (?, ?, ?)`,
		ev.OccurredAt.Format(time.RFC3339Nano), ev.Type, string(payload),
	)
	return err
}

func (s *SQLiteSink) Close() error {
	return s.pool.Close()
}
