package state

import (
	"context"

	"github.com/amonks/tickler/reminder"
)

// ReminderStore is the reminder.Store for one user's slice of the state file.
type ReminderStore struct {
	store  *Store
	userID string
}

// ReminderStore returns the reminder.Store for userID.
func (s *Store) ReminderStore(userID string) *ReminderStore {
	return &ReminderStore{store: s, userID: userID}
}

// Load returns a copy of the user's persisted map.
func (r *ReminderStore) Load(ctx context.Context) (reminder.Map, error) {
	st, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	return st.Users[r.userID].Clone(), nil
}

// Update applies fn to a copy of the user's map and stores the result. A user
// whose map ends up empty is removed from the file.
func (r *ReminderStore) Update(ctx context.Context, fn func(m reminder.Map) error) error {
	return r.store.Update(ctx, func(st *State) error {
		m := st.Users[r.userID].Clone()
		if err := fn(m); err != nil {
			return err
		}
		if len(m) == 0 {
			delete(st.Users, r.userID)
		} else {
			st.Users[r.userID] = m
		}
		return nil
	})
}
