package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/amonks/tickler/docstore"
	"github.com/amonks/tickler/internal/config"
	"github.com/amonks/tickler/internal/db"
	"github.com/amonks/tickler/internal/state"
	internalstrings "github.com/amonks/tickler/internal/strings"
	"github.com/amonks/tickler/notify"
	"github.com/amonks/tickler/reminder"
	"github.com/amonks/tickler/session"
	"github.com/amonks/tickler/task"
)

var errNotConfirmed = errors.New("change not confirmed by a snapshot")

// app holds the stores opened for one command invocation.
type app struct {
	cfg    *config.Config
	userID string
	logger *log.Logger

	conn  *sql.DB
	docs  *docstore.SQLite
	spool *notify.Spool

	session *session.Session
}

// openApp loads config and opens the database. It does not start a session.
func openApp() (*app, error) {
	cfg, err := config.Load(globalConfigPath)
	if err != nil {
		return nil, err
	}

	userID := cfg.User
	if globalUserID != "" {
		userID = globalUserID
	}
	if internalstrings.IsBlank(userID) {
		return nil, fmt.Errorf("no user: set user in %s or pass --user", configHint())
	}

	logger := log.New(io.Discard, "", 0)
	if globalVerbose {
		logger = log.New(os.Stderr, "tickler: ", log.LstdFlags)
	}

	path, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		userID: userID,
		logger: logger,
		conn:   conn,
		docs: docstore.New(conn, docstore.Options{
			PollInterval: cfg.Store.PollInterval,
			Logger:       logger,
		}),
		spool: notify.NewSpool(conn, notify.SpoolOptions{}),
	}, nil
}

// openSession opens the stores and starts a session, returning once the
// first snapshot has been applied.
func openSession(ctx context.Context, onTap func(taskID string)) (*app, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}

	store, err := a.reminderStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	hour, minute, err := a.cfg.Reminders.DeadlineClock()
	if err != nil {
		a.Close()
		return nil, err
	}

	sess, err := session.New(session.Options{
		UserID:        a.userID,
		Client:        a.docs,
		Backend:       a.spool.ForUser(a.userID),
		Store:         store,
		LeadTime:      a.cfg.Reminders.LeadTime,
		Dates:         task.DateOptions{Hour: hour, Minute: minute},
		Logger:        a.logger,
		OnReminderTap: onTap,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = sess

	if err := sess.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout())
	defer cancel()
	if err := sess.WaitForSnapshot(waitCtx, 0); err != nil {
		a.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return a, nil
}

func (a *app) reminderStore() (reminder.Store, error) {
	switch a.cfg.Reminders.Map {
	case config.MapFile:
		dir, err := a.cfg.StateDir()
		if err != nil {
			return nil, err
		}
		return state.NewStore(dir).ReminderStore(a.userID), nil
	default:
		return reminder.NewSQLiteStore(a.conn, a.userID), nil
	}
}

// Close stops the session and closes the database.
func (a *app) Close() error {
	if a.session != nil {
		a.session.Close()
	}
	return a.conn.Close()
}

func (a *app) repo() *task.Repository {
	return a.session.Repository()
}

// waitFor blocks until ready reports true after a snapshot, bounded by
// --wait.
func (a *app) waitFor(ctx context.Context, ready func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, waitTimeout())
	defer cancel()
	for {
		generation := a.session.Generation()
		if ready() {
			return nil
		}
		if err := a.session.WaitForSnapshot(ctx, generation); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w within %s", errNotConfirmed, waitTimeout())
			}
			return err
		}
	}
}

// waitForNext blocks until a snapshot newer than generation is applied.
func (a *app) waitForNext(ctx context.Context, generation uint64) error {
	return a.waitFor(ctx, func() bool {
		return a.session.Generation() > generation
	})
}

func waitTimeout() time.Duration {
	if globalWait <= 0 {
		return defaultWaitTimeout
	}
	return globalWait
}

func configHint() string {
	if globalConfigPath != "" {
		return globalConfigPath
	}
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path
	}
	return "~/.config/tickler/config.toml"
}
