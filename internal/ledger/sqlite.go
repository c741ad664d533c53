package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    correlation_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_correlation ON events(correlation_id, seq);
`

// SQLite implements Ledger backed by a SQLite database. The seq column is
// the per-database append order; querying by correlation id ordered by seq
// reproduces each trail's causal order.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite event log and applies migrations.
func NewSQLite(path string) (*SQLite, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Append(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO events (correlation_id, kind, timestamp, payload) VALUES (?,?,?,?)`,
		evt.CorrelationID, string(evt.Kind), evt.Timestamp, string(payload),
	)
	if err != nil {
		return fmt.Errorf("%w: append event: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) Query(correlationID string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT kind, timestamp, payload FROM events WHERE correlation_id = ? ORDER BY seq ASC`,
		correlationID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		evt := Event{CorrelationID: correlationID}
		var kind, payload string
		if err := rows.Scan(&kind, &evt.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Kind = Kind(kind)
		if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}
