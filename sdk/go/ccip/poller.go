package ccip

import (
	"context"
	"fmt"
	"time"
)

// Default polling schedule: first query after 2s, then every 5s, 60 queries.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
	DefaultInitialDelay = 2 * time.Second
)

// StatusSource is the read side a Poller queries. *Client implements it.
type StatusSource interface {
	GetTransfer(ctx context.Context, id string) (*Transfer, error)
}

// PollerConfig controls the polling schedule. Zero values select the defaults;
// a negative InitialDelay disables the initial wait.
type PollerConfig struct {
	Interval     time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
}

// Update is one reported observation of a transfer.
type Update struct {
	TransferID string
	Attempt    int
	Status     Status
	Message    string
	// Transfer is the last record returned by the source; nil when the
	// transfer was never observed.
	Transfer *Transfer
}

// Poller follows a transfer until it reaches success, error or timeout. The
// timeout it reports is a local observation; the record itself is not touched.
type Poller struct {
	source StatusSource
	cfg    PollerConfig
}

// NewPoller returns a Poller reading from source.
func NewPoller(source StatusSource, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	return &Poller{source: source, cfg: cfg}
}

// Watch queries the transfer at most MaxAttempts times and calls report for
// every change of the (status, message) pair. It returns the final update:
// success or error as observed, or a synthetic timeout once the attempt
// budget is spent. An unknown id ends the watch with the not-found error.
// Transient query failures consume an attempt and are retried on schedule.
func (p *Poller) Watch(ctx context.Context, id string, report func(Update)) (Update, error) {
	if report == nil {
		report = func(Update) {}
	}
	if err := wait(ctx, p.cfg.InitialDelay); err != nil {
		return Update{TransferID: id}, err
	}

	var (
		last     *Transfer
		reported bool
		previous Update
	)
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		transfer, err := p.source.GetTransfer(ctx, id)
		switch {
		case err != nil && IsNotFound(err):
			return Update{TransferID: id, Attempt: attempt, Transfer: last}, err
		case err != nil && ctx.Err() != nil:
			return Update{TransferID: id, Attempt: attempt, Transfer: last}, ctx.Err()
		case err == nil && transfer != nil:
			last = transfer
			update := Update{TransferID: id, Attempt: attempt, Status: transfer.Status, Message: transfer.Message, Transfer: transfer}
			if !reported || update.Status != previous.Status || update.Message != previous.Message {
				report(update)
				previous, reported = update, true
			}
			if transfer.Status.Terminal() {
				return update, nil
			}
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}
		if err := wait(ctx, p.cfg.Interval); err != nil {
			return Update{TransferID: id, Attempt: attempt, Transfer: last}, err
		}
	}

	timeout := Update{
		TransferID: id,
		Attempt:    p.cfg.MaxAttempts,
		Status:     StatusTimeout,
		Message:    fmt.Sprintf("transfer did not settle after %d status queries", p.cfg.MaxAttempts),
		Transfer:   last,
	}
	report(timeout)
	return timeout, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
