package ccip

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu      sync.Mutex
	calls   int
	replies []reply
}

type reply struct {
	transfer *Transfer
	err      error
}

func (s *scriptedSource) GetTransfer(context.Context, string) (*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r.transfer, r.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func status(st Status, msg string) reply {
	return reply{transfer: &Transfer{ID: "transfer_1", Status: st, Message: msg}}
}

func fastPoller(source StatusSource, attempts int) *Poller {
	return NewPoller(source, PollerConfig{Interval: time.Millisecond, MaxAttempts: attempts, InitialDelay: -1})
}

func TestPollerReportsChangesOnce(t *testing.T) {
	source := &scriptedSource{replies: []reply{
		status(StatusProcessing, "transfer submitted"),
		status(StatusProcessing, "transfer submitted"),
		status(StatusProcessing, "transfer submitted"),
		status(StatusProcessing, "transaction sent"),
		status(StatusSuccess, "transfer confirmed"),
	}}
	var updates []Update
	final, err := fastPoller(source, 10).Watch(context.Background(), "transfer_1", func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, 5, final.Attempt)
	assert.Equal(t, 5, source.Calls())
	require.Len(t, updates, 3)
	assert.Equal(t, "transfer submitted", updates[0].Message)
	assert.Equal(t, "transaction sent", updates[1].Message)
	assert.Equal(t, StatusSuccess, updates[2].Status)
}

func TestPollerStopsOnError(t *testing.T) {
	source := &scriptedSource{replies: []reply{status(StatusError, "command exited with code 1")}}
	final, err := fastPoller(source, 10).Watch(context.Background(), "transfer_1", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, 1, source.Calls())
}

func TestPollerTimesOutAfterExactBudget(t *testing.T) {
	source := &scriptedSource{replies: []reply{status(StatusProcessing, "transfer submitted")}}
	var updates []Update
	final, err := fastPoller(source, 7).Watch(context.Background(), "transfer_1", func(u Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)

	assert.Equal(t, StatusTimeout, final.Status)
	assert.Equal(t, 7, final.Attempt)
	require.NotNil(t, final.Transfer)
	assert.Equal(t, StatusProcessing, final.Transfer.Status)
	assert.Equal(t, 7, source.Calls())
	require.Len(t, updates, 2)
	assert.Equal(t, StatusTimeout, updates[1].Status)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 7, source.Calls())
}

func TestPollerTransientErrorsConsumeAttempts(t *testing.T) {
	source := &scriptedSource{replies: []reply{
		{err: errors.New("connection refused")},
		{err: &APIError{StatusCode: http.StatusBadGateway}},
		status(StatusSuccess, "transfer confirmed"),
	}}
	final, err := fastPoller(source, 5).Watch(context.Background(), "transfer_1", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, 3, final.Attempt)

	source = &scriptedSource{replies: []reply{{err: errors.New("connection refused")}}}
	final, err = fastPoller(source, 3).Watch(context.Background(), "transfer_1", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, final.Status)
	assert.Nil(t, final.Transfer)
	assert.Equal(t, 3, source.Calls())
}

func TestPollerNotFoundIsTerminal(t *testing.T) {
	source := &scriptedSource{replies: []reply{{err: &APIError{StatusCode: http.StatusNotFound, Code: "TRANSFER_NOT_FOUND"}}}}
	_, err := fastPoller(source, 5).Watch(context.Background(), "transfer_1", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, source.Calls())
}

func TestPollerHonoursContextAndInitialDelay(t *testing.T) {
	source := &scriptedSource{replies: []reply{status(StatusProcessing, "")}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := NewPoller(source, PollerConfig{Interval: time.Hour, MaxAttempts: 3, InitialDelay: time.Hour})
	_, err := p.Watch(ctx, "transfer_1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, source.Calls())
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller(&scriptedSource{}, PollerConfig{})
	assert.Equal(t, DefaultPollInterval, p.cfg.Interval)
	assert.Equal(t, DefaultMaxAttempts, p.cfg.MaxAttempts)
	assert.Equal(t, DefaultInitialDelay, p.cfg.InitialDelay)
}
