// Package db opens the tickler SQLite database and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// migrations are applied in order; the index+1 is the schema version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		user_id  TEXT    NOT NULL,
		id       TEXT    NOT NULL,
		fields   TEXT    NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (user_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS collections (
		user_id  TEXT    PRIMARY KEY,
		revision INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		user_id    TEXT    NOT NULL,
		task_id    TEXT    NOT NULL,
		handle     TEXT    NOT NULL,
		trigger_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, task_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		handle       TEXT    PRIMARY KEY,
		user_id      TEXT    NOT NULL,
		task_id      TEXT    NOT NULL,
		trigger_at   INTEGER NOT NULL,
		title        TEXT    NOT NULL,
		body         TEXT    NOT NULL,
		payload      TEXT    NOT NULL,
		status       TEXT    NOT NULL DEFAULT 'pending',
		delivered_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_due ON notifications (status, trigger_at)`,
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to :memory: opens a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// SchemaVersion reports the schema version recorded in the database.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithImmediateTx runs fn inside a BEGIN IMMEDIATE transaction on a
// dedicated connection, committing if fn returns nil. The write lock is
// taken up front, so a read followed by a write cannot fail with
// SQLITE_BUSY halfway through. fn must only use the connection it is given.
func WithImmediateTx(ctx context.Context, db *sql.DB, fn func(q Querier) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			// A background context so cancellation cannot leave the
			// connection inside a transaction.
			conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}
