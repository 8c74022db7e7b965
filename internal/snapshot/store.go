// Package snapshot persists the last result of a holder in SQLite so it can
// be loaded back into a fresh holder on the next start.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load when no snapshot exists under a name.
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    name     TEXT PRIMARY KEY,
    payload  BLOB NOT NULL,
    saved_at TEXT NOT NULL
);
`

// Record is a stored snapshot.
type Record struct {
	Name    string
	Payload []byte
	SavedAt time.Time
}

// Store provides SQLite-backed storage for holder snapshots.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the snapshot database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	// Enable WAL mode so the status server can read while a result is saved
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Save stores payload under name, replacing any previous snapshot.
func (s *Store) Save(name string, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (name, payload, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		name, payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// Load returns the snapshot stored under name.
func (s *Store) Load(name string) (*Record, error) {
	var r Record
	var savedAt string
	err := s.db.QueryRow(`SELECT name, payload, saved_at FROM snapshots WHERE name = ?`, name).
		Scan(&r.Name, &r.Payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		r.SavedAt = t
	}
	return &r, nil
}

// Delete removes the snapshot stored under name. Deleting a missing snapshot
// is not an error.
func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

// Names returns the names of all stored snapshots, sorted.
func (s *Store) Names() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM snapshots ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJSON encodes v as JSON and saves it under name.
func SaveJSON[R any](s *Store, name string, v R) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", name, err)
	}
	return s.Save(name, payload)
}

// LoadJSON loads the snapshot under name and decodes it into an R.
func LoadJSON[R any](s *Store, name string) (R, time.Time, error) {
	var v R
	rec, err := s.Load(name)
	if err != nil {
		return v, time.Time{}, err
	}
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return v, time.Time{}, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return v, rec.SavedAt, nil
}
