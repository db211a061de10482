package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amonks/tickler/internal/db"
)

// SQLiteStore persists one user's ReminderMap in the reminders table.
type SQLiteStore struct {
	db     *sql.DB
	userID string
}

// NewSQLiteStore returns a store for userID backed by conn, which must have
// been opened with db.Open.
func NewSQLiteStore(conn *sql.DB, userID string) *SQLiteStore {
	return &SQLiteStore{db: conn, userID: userID}
}

// Load returns the persisted map.
func (s *SQLiteStore) Load(ctx context.Context) (Map, error) {
	return s.load(ctx, s.db)
}

// Update applies fn to the persisted map inside one transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(m Map) error) error {
	return db.WithImmediateTx(ctx, s.db, func(q db.Querier) error {
		before, err := s.load(ctx, q)
		if err != nil {
			return err
		}
		after := before.Clone()
		if err := fn(after); err != nil {
			return err
		}

		for id := range before {
			if _, ok := after[id]; ok {
				continue
			}
			if _, err := q.ExecContext(ctx,
				"DELETE FROM reminders WHERE user_id = ? AND task_id = ?", s.userID, id); err != nil {
				return fmt.Errorf("delete reminder %s: %w", id, err)
			}
		}
		for id, entry := range after {
			if old, ok := before[id]; ok && old.Handle == entry.Handle && old.TriggerAt.Equal(entry.TriggerAt) {
				continue
			}
			if _, err := q.ExecContext(ctx,
				`INSERT INTO reminders (user_id, task_id, handle, trigger_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT (user_id, task_id) DO UPDATE SET handle = excluded.handle, trigger_at = excluded.trigger_at`,
				s.userID, id, entry.Handle, entry.TriggerAt.UnixNano()); err != nil {
				return fmt.Errorf("save reminder %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) load(ctx context.Context, q db.Querier) (Map, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT task_id, handle, trigger_at FROM reminders WHERE user_id = ?", s.userID)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	m := Map{}
	for rows.Next() {
		var id, handle string
		var triggerAt int64
		if err := rows.Scan(&id, &handle, &triggerAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		m[id] = Entry{Handle: handle, TriggerAt: time.Unix(0, triggerAt)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	return m, nil
}
