// Package storage keeps session-scoped key/value state, the server-side
// counterpart of the browser's sessionStorage.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	schema "github.com/grantinsight/gisearch/pkg/db"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DBFile is the database file name inside the storage directory.
const DBFile = "sessions.db"

// SessionStore persists values per session in SQLite.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	ID        string
	Keys      int
	UpdatedAt time.Time
}

// OpenDir opens (creating when needed) the session database in dir.
func OpenDir(dir string) (*SessionStore, error) {
	return Open(filepath.Join(dir, DBFile))
}

func Open(dbPath string) (*SessionStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := schema.InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SessionStore{db: db, now: time.Now}, nil
}

// Migrations reports the schema migrations applied to the database.
func (s *SessionStore) Migrations() (*schema.MigrationStatus, error) {
	return schema.NewMigrationManager(s.db).GetMigrationStatus()
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key for the session. ok is false when
// nothing is stored.
func (s *SessionStore) Get(sessionID, key string) (value string, ok bool, err error) {
	row := s.db.QueryRow(`SELECT value FROM session_state WHERE session_id = ? AND key = ?`, sessionID, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s/%s: %w", sessionID, key, err)
	}
	return value, true, nil
}

func (s *SessionStore) Set(sessionID, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_state (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", sessionID, key, err)
	}
	return nil
}

func (s *SessionStore) Delete(sessionID, key string) error {
	if _, err := s.db.Exec(`DELETE FROM session_state WHERE session_id = ? AND key = ?`, sessionID, key); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", sessionID, key, err)
	}
	return nil
}

// Clear ends a session by dropping every value it holds.
func (s *SessionStore) Clear(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM session_state WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing session %s: %w", sessionID, err)
	}
	return nil
}

// Purge drops sessions that have not been written for longer than ttl and
// returns the number of removed rows.
func (s *SessionStore) Purge(ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl).UnixMilli()
	res, err := s.db.Exec(`DELETE FROM session_state WHERE session_id IN (
		SELECT session_id FROM session_state GROUP BY session_id HAVING MAX(updated_at) < ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}

// Sessions lists stored sessions, most recently updated first.
func (s *SessionStore) Sessions() ([]SessionInfo, error) {
	rows, err := s.db.Query(`
		SELECT session_id, COUNT(*), MAX(updated_at) FROM session_state
		GROUP BY session_id ORDER BY MAX(updated_at) DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			updated int64
		)
		if err := rows.Scan(&info.ID, &info.Keys, &updated); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Session binds the store to one session id.
func (s *SessionStore) Session(id string) *Session {
	return &Session{id: id, backend: s}
}

type backend interface {
	Get(sessionID, key string) (string, bool, error)
	Set(sessionID, key, value string) error
}

// Session is the key/value view of a single session.
type Session struct {
	id      string
	backend backend
}

func (s *Session) ID() string { return s.id }

func (s *Session) Load(key string) (string, bool, error) {
	return s.backend.Get(s.id, key)
}

func (s *Session) Save(key, value string) error {
	return s.backend.Set(s.id, key, value)
}

// MemoryStore is an in-process store; its sessions end with the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(sessionID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[sessionID][key]
	return v, ok, nil
}

func (m *MemoryStore) Set(sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[string]string)
	}
	m.data[sessionID][key] = value
	return nil
}

func (m *MemoryStore) Clear(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MemoryStore) Session(id string) *Session {
	return &Session{id: id, backend: m}
}
