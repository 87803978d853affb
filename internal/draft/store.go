// Package draft stages in-progress composed messages per entity in a
// local sqlite database, durable across restarts.
package draft

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	entity_id  TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Draft is one staged message.
type Draft struct {
	EntityID  string    `json:"entity_id"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists drafts keyed by entity id. At most one live draft per
// entity; Save overwrites, Clear removes.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the drafts database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open drafts db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply drafts schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes the draft body for an entity, replacing any previous draft.
func (s *Store) Save(entityID, body string) error {
	_, err := s.db.Exec(`
		INSERT INTO drafts (entity_id, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(entity_id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, entityID, body)
	if err != nil {
		return fmt.Errorf("save draft %s: %w", entityID, err)
	}
	return nil
}

// Load returns the staged body for an entity, or "" when none exists.
func (s *Store) Load(entityID string) (string, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM drafts WHERE entity_id = ?`, entityID).Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load draft %s: %w", entityID, err)
	}
	return body, nil
}

// Clear removes the draft for an entity. Clearing a missing draft is a
// no-op.
func (s *Store) Clear(entityID string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear draft %s: %w", entityID, err)
	}
	return nil
}

// List returns all staged drafts, most recently updated first.
func (s *Store) List() ([]Draft, error) {
	rows, err := s.db.Query(`SELECT entity_id, body, updated_at FROM drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	var out []Draft
	for rows.Next() {
		var d Draft
		if err := rows.Scan(&d.EntityID, &d.Body, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
