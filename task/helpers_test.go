package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amonks/tickler/docstore"
)

type clientCall struct {
	Op     string
	UserID string
	ID     string
	Fields docstore.Fields
}

type fakeClient struct {
	mu     sync.Mutex
	calls  []clientCall
	err    error
	nextID string
}

func (c *fakeClient) record(call clientCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.err
}

func (c *fakeClient) Create(ctx context.Context, userID string, fields docstore.Fields) (string, error) {
	if err := c.record(clientCall{Op: "create", UserID: userID, Fields: fields}); err != nil {
		return "", err
	}
	return c.nextID, nil
}

func (c *fakeClient) Update(ctx context.Context, userID, id string, fields docstore.Fields) error {
	return c.record(clientCall{Op: "update", UserID: userID, ID: id, Fields: fields})
}

func (c *fakeClient) Delete(ctx context.Context, userID, id string) error {
	return c.record(clientCall{Op: "delete", UserID: userID, ID: id})
}

func (c *fakeClient) Calls() []clientCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]clientCall(nil), c.calls...)
}

var errOffline = errors.New("offline")

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

var testDates = DateOptions{Hour: 9, Location: time.UTC}

func newTestRepository(t *testing.T, client *fakeClient) *Repository {
	t.Helper()

	repo, err := NewRepository(Options{
		UserID: "alice",
		Client: client,
		Dates:  testDates,
		Now:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return repo
}

func doc(id, title, tag, date string, done bool) docstore.Document {
	return docstore.Document{
		ID: id,
		Fields: docstore.Fields{
			FieldTitle:  title,
			FieldTag:    tag,
			FieldDate:   date,
			FieldIsDone: done,
		},
	}
}

func profileDoc() docstore.Document {
	return docstore.Document{
		ID:     ProfileDocumentID,
		Fields: docstore.Fields{"username": "Alice", "photoURL": "https://example.com/a.png"},
	}
}
