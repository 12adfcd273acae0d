// Package store is the local SQLite cache. It keeps a copy of the
// conversation index for instant sidebar paint before the network
// round trip, the id of the last active thread, and the prompt input
// history for up-arrow recall.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"clarity/internal/conversation"
	"clarity/internal/logging"
)

// LocalStore wraps the SQLite database. A single connection with WAL
// keeps concurrent readers cheap while writes stay serialized.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.StoreError("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Database schema initialized successfully")

	return store, nil
}

// DefaultPath returns the cache location under the user's home.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".clarity", "clarity.db"), nil
}

func (s *LocalStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		synced_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at DESC);

	CREATE TABLE IF NOT EXISTS input_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		entered_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// =============================================================================
// CONVERSATION INDEX CACHE
// =============================================================================

// ReplaceConversations swaps the cached index for the server's current
// list. Full replacement keeps deletions simple; the index is small.
func (s *LocalStore) ReplaceConversations(convs []conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}

	now := time.Now().UnixMilli()
	stmt, err := tx.Prepare("INSERT INTO conversations (id, title, created_at, synced_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range convs {
		if _, err := stmt.Exec(c.ID, c.Title, c.CreatedAt.UnixMilli(), now); err != nil {
			return fmt.Errorf("failed to insert conversation %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	logging.StoreDebug("Cached %d conversations", len(convs))
	return nil
}

// Conversations returns the cached index, newest first.
func (s *LocalStore) Conversations() ([]conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, title, created_at FROM conversations ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []conversation.Conversation
	for rows.Next() {
		var c conversation.Conversation
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// DeleteConversation drops one thread from the cache.
func (s *LocalStore) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// =============================================================================
// APP STATE
// =============================================================================

const keyLastConversation = "last_conversation_id"

// SetLastConversation remembers the active thread across runs.
func (s *LocalStore) SetLastConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO app_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		keyLastConversation, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save last conversation: %w", err)
	}
	return nil
}

// LastConversation returns the id of the thread that was active when
// the program last exited, or "" when none was recorded.
func (s *LocalStore) LastConversation() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow("SELECT value FROM app_state WHERE key = ?", keyLastConversation).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load last conversation: %w", err)
	}
	return id, nil
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

const maxInputHistory = 200

// AppendInput records a submitted prompt for up-arrow recall. The
// table is trimmed to the newest entries on each append.
func (s *LocalStore) AppendInput(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT INTO input_history (content, entered_at) VALUES (?, ?)", content, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert input: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM input_history WHERE id NOT IN (SELECT id FROM input_history ORDER BY id DESC LIMIT ?)",
		maxInputHistory,
	); err != nil {
		return fmt.Errorf("failed to trim input history: %w", err)
	}

	return tx.Commit()
}

// InputHistory returns recorded prompts, newest first.
func (s *LocalStore) InputHistory(limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > maxInputHistory {
		limit = maxInputHistory
	}
	rows, err := s.db.Query("SELECT content FROM input_history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query input history: %w", err)
	}
	defer rows.Close()

	var history []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan input: %w", err)
		}
		history = append(history, content)
	}
	return history, rows.Err()
}
