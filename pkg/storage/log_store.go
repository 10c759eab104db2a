package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/logging"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultMaxEntries is the size of the operator log
const DefaultMaxEntries = 500

// LogStore keeps the most recent operator log events. The database lives in
// memory only and disappears with the process.
type LogStore struct {
	db         *sql.DB
	maxEntries int
}

// NewLogStore creates a log store capped at maxEntries
func NewLogStore(maxEntries int) (*LogStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	store := &LogStore{maxEntries: maxEntries}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize log store: %w", err)
	}

	return store, nil
}

// initialize opens the in-memory database and creates the schema
func (ls *LogStore) initialize() error {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	ls.db = db

	if err := ls.createTables(); err != nil {
		db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	logging.Debugf("storage", "log store initialized (max %d entries)", ls.maxEntries)
	return nil
}

// createTables creates the database schema
func (ls *LogStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS log_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL CHECK (level IN ('info', 'tx', 'rx', 'error')),
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_log_entries_level ON log_entries(level);

	CREATE TABLE IF NOT EXISTS log_stats (
		id INTEGER PRIMARY KEY,
		total INTEGER NOT NULL DEFAULT 0,
		dropped INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO log_stats (id, total, dropped) VALUES (1, 0, 0);
	`

	_, err := ls.db.Exec(schema)
	return err
}

// Append stores one log entry and drops the oldest beyond the cap
func (ls *LogStore) Append(at time.Time, level amp.LogLevel, message string) error {
	tx, err := ls.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO log_entries (timestamp, level, message) VALUES (?, ?, ?)",
		at.UTC(), string(level), message,
	); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	dropped, err := ls.trim(tx)
	if err != nil {
		return fmt.Errorf("failed to trim log: %w", err)
	}

	if _, err := tx.Exec(
		"UPDATE log_stats SET total = total + 1, dropped = dropped + ? WHERE id = 1",
		dropped,
	); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	return tx.Commit()
}

// trim removes entries beyond the cap, oldest first
func (ls *LogStore) trim(tx *sql.Tx) (int64, error) {
	result, err := tx.Exec(`
		DELETE FROM log_entries
		WHERE id NOT IN (
			SELECT id FROM log_entries ORDER BY id DESC LIMIT ?
		)
	`, ls.maxEntries)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HandleEvent stores log events; other events are ignored
func (ls *LogStore) HandleEvent(ev amp.Event) error {
	if ev.Type != amp.EventLog || ev.Log == nil {
		return nil
	}
	return ls.Append(ev.Time, ev.Log.Level, ev.Log.Message)
}

// Clear empties the log
func (ls *LogStore) Clear() error {
	_, err := ls.db.Exec("DELETE FROM log_entries")
	return err
}

// MaxEntries returns the cap
func (ls *LogStore) MaxEntries() int {
	return ls.maxEntries
}

// Close closes the database connection
func (ls *LogStore) Close() error {
	if ls.db != nil {
		return ls.db.Close()
	}
	return nil
}
