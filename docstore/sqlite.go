package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/amonks/tickler/internal/db"
	"github.com/amonks/tickler/internal/ids"
	internalstrings "github.com/amonks/tickler/internal/strings"
)

// DefaultPollInterval is how often a subscription checks for changes made
// by other processes.
const DefaultPollInterval = time.Second

// Options configures a SQLite document store.
type Options struct {
	// PollInterval bounds how long a change made by another process takes
	// to reach subscribers. Changes made through the same SQLite value are
	// delivered immediately.
	PollInterval time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives subscription read errors. Defaults to discarding.
	Logger *log.Logger
}

// SQLite is a Client backed by the documents table.
//
// Every write bumps the collection revision in the same transaction, and
// subscriptions deliver a fresh snapshot whenever the revision moves.
type SQLite struct {
	db     *sql.DB
	poll   time.Duration
	now    func() time.Time
	logger *log.Logger

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

var _ Client = (*SQLite)(nil)

type subscription struct {
	userID string
	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
}

// New returns a document store using conn, which must have been opened
// with db.Open.
func New(conn *sql.DB, opts Options) *SQLite {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &SQLite{
		db:     conn,
		poll:   poll,
		now:    now,
		logger: logger,
		subs:   make(map[*subscription]struct{}),
	}
}

// Subscribe delivers the user's collection now and after every change.
// The returned function stops the subscription and waits for any snapshot
// in progress; it must not be called from fn.
func (s *SQLite) Subscribe(ctx context.Context, userID string, fn SnapshotFunc) (func(), error) {
	if internalstrings.IsBlank(userID) {
		return nil, fmt.Errorf("user id is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("snapshot callback is required")
	}

	sub := &subscription{
		userID: userID,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go s.watch(ctx, sub, fn)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(sub.done)
			<-sub.exited
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
		})
	}
	return unsubscribe, nil
}

func (s *SQLite) watch(ctx context.Context, sub *subscription, fn SnapshotFunc) {
	defer close(sub.exited)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	last := int64(-1)
	for {
		revision, err := s.revision(ctx, s.db, sub.userID)
		if err != nil {
			s.logger.Printf("subscription %s: %v", sub.userID, err)
		} else if revision != last {
			docs, revision, err := s.snapshot(ctx, sub.userID)
			if err != nil {
				s.logger.Printf("subscription %s: %v", sub.userID, err)
			} else {
				select {
				case <-sub.done:
					return
				default:
				}
				last = revision
				fn(docs)
			}
		}

		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-sub.wake:
		}
	}
}

func (s *SQLite) notify(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

func (s *SQLite) revision(ctx context.Context, q db.Querier, userID string) (int64, error) {
	var revision int64
	err := q.QueryRowContext(ctx,
		"SELECT revision FROM collections WHERE user_id = ?", userID).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return revision, nil
}

func (s *SQLite) snapshot(ctx context.Context, userID string) ([]Document, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	revision, err := s.revision(ctx, tx, userID)
	if err != nil {
		return nil, 0, err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT id, fields FROM documents WHERE user_id = ? ORDER BY position, id", userID)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			s.logger.Printf("document %s/%s: %v", userID, id, err)
			fields = Fields{}
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read documents: %w", err)
	}
	return docs, revision, nil
}

// Create stores a new document with a generated id.
func (s *SQLite) Create(ctx context.Context, userID string, fields Fields) (string, error) {
	raw, err := encodeFields(fields)
	if err != nil {
		return "", err
	}

	var id string
	err = db.WithImmediateTx(ctx, s.db, func(q db.Querier) error {
		created := s.now()
		for attempt := 0; ; attempt++ {
			id = ids.ForDocument(userID, raw, created, attempt)
			exists, err := s.exists(ctx, q, userID, id)
			if err != nil {
				return err
			}
			if !exists {
				break
			}
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO documents (user_id, id, fields, position)
			 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM documents WHERE user_id = ?))`,
			userID, id, raw, userID); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return bumpRevision(ctx, q, userID)
	})
	if err != nil {
		return "", err
	}
	s.notify(userID)
	return id, nil
}

// Update merges fields into an existing document.
func (s *SQLite) Update(ctx context.Context, userID, id string, fields Fields) error {
	err := db.WithImmediateTx(ctx, s.db, func(q db.Querier) error {
		current, err := s.get(ctx, q, userID, id)
		if err != nil {
			return err
		}
		for key, value := range fields {
			current.Fields[key] = value
		}
		raw, err := encodeFields(current.Fields)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			"UPDATE documents SET fields = ? WHERE user_id = ? AND id = ?", raw, userID, id); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return bumpRevision(ctx, q, userID)
	})
	if err != nil {
		return err
	}
	s.notify(userID)
	return nil
}

// Delete removes a document.
func (s *SQLite) Delete(ctx context.Context, userID, id string) error {
	err := db.WithImmediateTx(ctx, s.db, func(q db.Querier) error {
		result, err := q.ExecContext(ctx,
			"DELETE FROM documents WHERE user_id = ? AND id = ?", userID, id)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bumpRevision(ctx, q, userID)
	})
	if err != nil {
		return err
	}
	s.notify(userID)
	return nil
}

// Put stores a document under a fixed id, replacing its fields.
func (s *SQLite) Put(ctx context.Context, userID, id string, fields Fields) error {
	if internalstrings.IsBlank(id) {
		return fmt.Errorf("document id is required")
	}
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}
	err = db.WithImmediateTx(ctx, s.db, func(q db.Querier) error {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO documents (user_id, id, fields, position)
			 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM documents WHERE user_id = ?))
			 ON CONFLICT (user_id, id) DO UPDATE SET fields = excluded.fields`,
			userID, id, raw, userID); err != nil {
			return fmt.Errorf("put document: %w", err)
		}
		return bumpRevision(ctx, q, userID)
	})
	if err != nil {
		return err
	}
	s.notify(userID)
	return nil
}

// Get returns one document.
func (s *SQLite) Get(ctx context.Context, userID, id string) (Document, error) {
	return s.get(ctx, s.db, userID, id)
}

func (s *SQLite) get(ctx context.Context, q db.Querier, userID, id string) (Document, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		"SELECT fields FROM documents WHERE user_id = ? AND id = ?", userID, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: fields}, nil
}

func (s *SQLite) exists(ctx context.Context, q db.Querier, userID, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM documents WHERE user_id = ? AND id = ?", userID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return true, nil
}

func bumpRevision(ctx context.Context, q db.Querier, userID string) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO collections (user_id, revision) VALUES (?, 1)
		 ON CONFLICT (user_id) DO UPDATE SET revision = revision + 1`, userID); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}
	return nil
}

func encodeFields(fields Fields) (string, error) {
	if fields == nil {
		fields = Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(raw string) (Fields, error) {
	fields := Fields{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	// A stored JSON null decodes to a nil map.
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}
