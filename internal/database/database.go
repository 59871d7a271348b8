package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection used for staff notifications and webhook
// message deduplication. Booking data itself lives in the spreadsheet; the
// database only holds state the spreadsheet cannot.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and runs schema setup.
func New(path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is still usable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		booking_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);

	CREATE TABLE IF NOT EXISTS processed_messages (
		message_id TEXT PRIMARY KEY,
		processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// MarkProcessed records a webhook message ID, returning false when the ID
// was seen before. Meta redelivers webhooks, so this keeps a retried
// delivery from booking twice.
func (db *DB) MarkProcessed(messageID string) (bool, error) {
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO processed_messages (message_id) VALUES (?)`, messageID)
	if err != nil {
		return false, fmt.Errorf("recording message %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PruneProcessed deletes dedup records older than the given number of days.
func (db *DB) PruneProcessed(days int) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM processed_messages WHERE processed_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("pruning processed messages: %w", err)
	}
	return res.RowsAffected()
}
