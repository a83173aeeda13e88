// Package store is the durable client-local storage: the session token pair
// and the cached history page survive across invocations in a SQLite file,
// the way the browser frontend kept them in localStorage.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the store at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Session is the persisted credential set. Access and refresh tokens are
// stored and cleared together; a partial row is treated as no session.
type Session struct {
	Username     string
	AccessToken  string
	RefreshToken string
}

// SaveSession writes the session, replacing any previous one.
func (s *Store) SaveSession(sess Session) error {
	_, err := s.conn.Exec(`
		INSERT INTO session (id, username, access_token, refresh_token, updated_at)
		VALUES (1, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at`,
		sess.Username, sess.AccessToken, sess.RefreshToken)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// UpdateAccessToken replaces only the access token of the stored session.
func (s *Store) UpdateAccessToken(token string) error {
	_, err := s.conn.Exec(
		"UPDATE session SET access_token = ?, updated_at = datetime('now') WHERE id = 1", token)
	if err != nil {
		return fmt.Errorf("updating access token: %w", err)
	}
	return nil
}

// LoadSession returns the persisted session, or nil when none exists or the
// stored row is incomplete.
func (s *Store) LoadSession() (*Session, error) {
	var sess Session
	err := s.conn.QueryRow(
		"SELECT username, access_token, refresh_token FROM session WHERE id = 1").
		Scan(&sess.Username, &sess.AccessToken, &sess.RefreshToken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" || sess.Username == "" {
		return nil, nil
	}
	return &sess, nil
}

// ClearSession deletes the persisted session. Deleting an absent session is
// not an error.
func (s *Store) ClearSession() error {
	if _, err := s.conn.Exec("DELETE FROM session WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// HistoryEntry is one cached row of the user's analysis history.
type HistoryEntry struct {
	ID        int64
	Title     string
	CreatedAt string
}

// ReplaceHistory swaps the cached history page for the given entries.
func (s *Store) ReplaceHistory(entries []HistoryEntry) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin history replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM history"); err != nil {
		return fmt.Errorf("clearing history cache: %w", err)
	}
	for _, e := range entries {
		_, err := tx.Exec(
			"INSERT INTO history (id, title, created_at, cached_at) VALUES (?, ?, ?, datetime('now'))",
			e.ID, e.Title, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("caching history entry %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// History returns the cached history page, newest first.
func (s *Store) History() ([]HistoryEntry, error) {
	rows, err := s.conn.Query(
		"SELECT id, title, created_at FROM history ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("reading history cache: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory drops the cached history page.
func (s *Store) ClearHistory() error {
	if _, err := s.conn.Exec("DELETE FROM history"); err != nil {
		return fmt.Errorf("clearing history cache: %w", err)
	}
	return nil
}
