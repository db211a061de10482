package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// DefaultInterval is how often Run checks the spool.
const DefaultInterval = 15 * time.Second

// DelivererOptions configures a Deliverer.
type DelivererOptions struct {
	Spool  *Spool
	UserID string
	Sink   Sink

	// Interval between spool checks in Run. Defaults to DefaultInterval.
	Interval time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives delivery failures. Defaults to discarding.
	Logger *log.Logger
}

// Deliverer hands due notifications to a Sink and marks them delivered.
type Deliverer struct {
	spool    *Spool
	userID   string
	sink     Sink
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewDeliverer creates a deliverer for one user's notifications.
func NewDeliverer(opts DelivererOptions) (*Deliverer, error) {
	if opts.Spool == nil {
		return nil, fmt.Errorf("spool is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if opts.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Deliverer{
		spool:    opts.Spool,
		userID:   opts.UserID,
		sink:     opts.Sink,
		interval: interval,
		now:      now,
		logger:   logger,
	}, nil
}

// DeliverDue delivers every due notification once and returns how many
// were delivered. A notification whose sink fails stays pending and is
// retried on the next call.
func (d *Deliverer) DeliverDue(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.spool.Due(ctx, d.userID, now)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, record := range due {
		if err := d.sink.Deliver(ctx, record); err != nil {
			d.logger.Printf("deliver %s: %v", record.Handle, err)
			continue
		}
		if err := d.spool.MarkDelivered(ctx, record.Handle, now); err != nil {
			// Cancelled while the sink ran.
			d.logger.Printf("mark %s delivered: %v", record.Handle, err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// Run delivers due notifications every interval until ctx is done.
func (d *Deliverer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.DeliverDue(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Printf("deliver notifications: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
