// Package notify implements a local notification backend: a persistent
// spool of scheduled notifications and a loop that delivers them when due.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amonks/tickler/reminder"
)

// ErrNotFound is returned when a handle is not in the spool.
var ErrNotFound = errors.New("notification not found")

// Status is the delivery state of a spooled notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// handleNamespace scopes the name-based UUIDs used as handles.
var handleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/amonks/tickler/notifications"))

// Handle returns the handle of the notification for taskID firing at
// trigger. The same inputs always produce the same handle, so repeating a
// schedule call after a crash updates the existing notification instead of
// adding a second one.
func Handle(userID, taskID string, trigger time.Time) string {
	name := userID + "\x00" + taskID + "\x00" + trigger.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(handleNamespace, []byte(name)).String()
}

// Record is one spooled notification.
type Record struct {
	Handle      string    `json:"handle"`
	UserID      string    `json:"userId"`
	TaskID      string    `json:"taskId"`
	TriggerAt   time.Time `json:"triggerAt"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Payload     []byte    `json:"payload"`
	Status      Status    `json:"status"`
	DeliveredAt time.Time `json:"deliveredAt,omitzero"`
}

// SpoolOptions configures a Spool.
type SpoolOptions struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Spool stores notifications in the notifications table.
type Spool struct {
	db  *sql.DB
	now func() time.Time
}

// NewSpool returns a spool using conn, which must carry the tickler
// schema (see internal/db).
func NewSpool(conn *sql.DB, opts SpoolOptions) *Spool {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Spool{db: conn, now: now}
}

// ForUser returns the reminder.Backend scheduling notifications for userID.
func (s *Spool) ForUser(userID string) *Backend {
	return &Backend{spool: s, userID: userID}
}

// Get returns the notification with handle.
func (s *Spool) Get(ctx context.Context, handle string) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+" WHERE handle = ?", handle)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read notification: %w", err)
	}
	return record, nil
}

// Due returns the user's pending notifications whose trigger time is not
// after now, earliest first.
func (s *Spool) Due(ctx context.Context, userID string, now time.Time) ([]Record, error) {
	return s.query(ctx,
		selectRecord+" WHERE user_id = ? AND status = ? AND trigger_at <= ? ORDER BY trigger_at, handle",
		userID, string(StatusPending), now.UnixNano())
}

// Pending returns all of the user's pending notifications, earliest first.
func (s *Spool) Pending(ctx context.Context, userID string) ([]Record, error) {
	return s.query(ctx,
		selectRecord+" WHERE user_id = ? AND status = ? ORDER BY trigger_at, handle",
		userID, string(StatusPending))
}

// MarkDelivered records that the notification was shown at.
func (s *Spool) MarkDelivered(ctx context.Context, handle string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, delivered_at = ? WHERE handle = ? AND status = ?",
		string(StatusDelivered), at.UnixNano(), handle, string(StatusPending))
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	return nil
}

func (s *Spool) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	return records, nil
}

const selectRecord = `SELECT handle, user_id, task_id, trigger_at, title, body, payload, status, delivered_at FROM notifications`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var record Record
	var triggerAt int64
	var payload, status string
	var deliveredAt sql.NullInt64
	if err := row.Scan(&record.Handle, &record.UserID, &record.TaskID, &triggerAt,
		&record.Title, &record.Body, &payload, &status, &deliveredAt); err != nil {
		return Record{}, err
	}
	record.TriggerAt = time.Unix(0, triggerAt)
	record.Payload = []byte(payload)
	record.Status = Status(status)
	if deliveredAt.Valid {
		record.DeliveredAt = time.Unix(0, deliveredAt.Int64)
	}
	return record, nil
}

// Backend is the per-user reminder.Backend view of a Spool.
type Backend struct {
	spool  *Spool
	userID string
}

var _ reminder.Backend = (*Backend)(nil)

// Schedule spools n. Scheduling the same task and trigger time again
// refreshes its text and keeps its delivery state.
func (b *Backend) Schedule(ctx context.Context, n reminder.Notification) (string, error) {
	handle := Handle(b.userID, n.TaskID, n.TriggerAt)
	_, err := b.spool.db.ExecContext(ctx,
		`INSERT INTO notifications (handle, user_id, task_id, trigger_at, title, body, payload, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (handle) DO UPDATE SET title = excluded.title, body = excluded.body, payload = excluded.payload`,
		handle, b.userID, n.TaskID, n.TriggerAt.UnixNano(), n.Title, n.Body, string(n.Payload), string(StatusPending))
	if err != nil {
		return "", fmt.Errorf("spool notification: %w", err)
	}
	return handle, nil
}

// Cancel drops a pending notification that has not fired yet. A
// notification whose trigger time has passed counts as fired and stays
// queued for delivery. Unknown and delivered handles are left alone.
func (b *Backend) Cancel(ctx context.Context, handle string) error {
	_, err := b.spool.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE handle = ? AND user_id = ? AND status = ? AND trigger_at > ?",
		handle, b.userID, string(StatusPending), b.spool.now().UnixNano())
	if err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	return nil
}
