package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CCIP-Bridge/internal/ccip/codec"
	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/observability/alerting"
)

type countingSubmitter struct {
	calls   atomic.Int32
	latency time.Duration
	fail    error
	logs    string
}

func (c *countingSubmitter) Submit(ctx context.Context, job Job) (*Outcome, error) {
	c.calls.Add(1)
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fail != nil {
		return &Outcome{Logs: c.logs}, c.fail
	}
	id := common.BytesToHash([]byte(job.ID))
	return &Outcome{MessageID: &id, TxSignature: "sig-" + job.ID, ExplorerURL: "https://ccip.chain.link/msg/" + id.Hex(), Logs: "ok"}, nil
}

type recordingAlerts struct {
	mu     sync.Mutex
	events []alerting.Event
}

func (r *recordingAlerts) Notify(_ context.Context, event alerting.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type brokenQueue struct{ *MemoryQueue }

func (brokenQueue) Publish(context.Context, Job) error {
	return errors.New("broker unavailable")
}

func testJob(id string) Job {
	return Job{
		ID:          id,
		Intent:      testIntent(),
		Params:      DefaultParams(),
		Route:       "solana-devnet->ethereum-sepolia",
		TokenMint:   bnmMint.String(),
		Amount:      10_000_000,
		Instruction: &codec.EncodedInstruction{Method: codec.MethodCCIPSend, Program: ccipRouter},
	}
}

func waitForStatus(t *testing.T, store Store, id string, want Status) *Record {
	t.Helper()
	var record *Record
	require.Eventually(t, func() bool {
		var err error
		record, err = store.Get(context.Background(), id)
		return err == nil && record.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return record
}

func TestDispatcherHandlesConcurrentTransfers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := NewMemoryStore()
	queue := NewMemoryQueue(1024)
	submitter := &countingSubmitter{latency: 5 * time.Millisecond}
	dispatcher := NewDispatcher(store, queue, submitter, WithWorkerCount(8))

	go func() {
		if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("dispatcher exited: %v", err)
		}
	}()

	const total = 200
	for i := 0; i < total; i++ {
		record, err := dispatcher.Submit(ctx, testJob(fmt.Sprintf("transfer_%d", i)))
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, record.Status)
	}

	require.Eventually(t, func() bool {
		stats, err := store.Stats(ctx, ListOptions{})
		return err == nil && stats.Success == total
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(total), submitter.calls.Load())

	record, err := store.Get(ctx, "transfer_7")
	require.NoError(t, err)
	require.NotNil(t, record.MessageID)
	assert.Equal(t, "sig-transfer_7", record.TxSignature)
	assert.Contains(t, record.ExplorerURL, "ccip.chain.link")
}

func TestDispatcherRecordsSubmitFailure(t *testing.T) {
	store := NewMemoryStore()
	alerts := &recordingAlerts{}
	submitter := &countingSubmitter{fail: errors.New("rpc: connection refused"), logs: "stderr output"}
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter, WithAlertDispatcher(alerts))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing}))
	require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

	record, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, record.Status)
	assert.Equal(t, string(CodeDispatchFailure), record.ErrorCode)
	assert.Contains(t, record.Message, "connection refused")
	assert.Equal(t, "stderr output", record.Logs)
	assert.Nil(t, record.MessageID)

	require.Len(t, alerts.events, 1)
	assert.Equal(t, "t1", alerts.events[0].TransferID)
	assert.Equal(t, "submit", alerts.events[0].Stage)
	assert.Equal(t, CodeDispatchFailure, alerts.events[0].Code)
}

func TestDispatcherRecoversFromSubmitterPanic(t *testing.T) {
	store := NewMemoryStore()
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), SubmitterFunc(func(context.Context, Job) (*Outcome, error) {
		panic("signer exploded")
	}))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing}))
	require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

	record, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, record.Status)
	assert.Contains(t, record.Message, "signer exploded")
}

func TestDispatcherTreatsNilOutcomeAsFailure(t *testing.T) {
	store := NewMemoryStore()
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), SubmitterFunc(func(context.Context, Job) (*Outcome, error) {
		return nil, nil
	}))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing}))
	require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

	record, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, record.Status)
}

func TestDispatcherSkipsFinalRecords(t *testing.T) {
	store := NewMemoryStore()
	submitter := &countingSubmitter{}
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusSuccess}))
	require.NoError(t, dispatcher.handle(ctx, testJob("t1")))
	assert.Zero(t, submitter.calls.Load())
}

func TestDispatcherLateResultPolicy(t *testing.T) {
	cases := []struct {
		policy     LateResultPolicy
		wantStatus Status
		wantCalls  int32
	}{
		{policy: LateResultAccept, wantStatus: StatusSuccess, wantCalls: 1},
		{policy: LateResultReject, wantStatus: StatusTimeout, wantCalls: 0},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			store := NewMemoryStore()
			submitter := &countingSubmitter{}
			dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter, WithLateResultPolicy(tc.policy))
			ctx := context.Background()

			require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusTimeout}))
			require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

			record, err := store.Get(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, record.Status)
			assert.Equal(t, tc.wantCalls, submitter.calls.Load())
		})
	}
}

func TestDispatcherRejectPolicyDropsResultArrivingAfterTimeout(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing}))

	submitter := SubmitterFunc(func(context.Context, Job) (*Outcome, error) {
		_, err := store.Update(ctx, "t1", func(r *Record) error {
			r.Status = StatusTimeout
			return nil
		})
		require.NoError(t, err)
		return &Outcome{TxSignature: "late"}, nil
	})
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter, WithLateResultPolicy(LateResultReject))
	require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

	record, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, record.Status)
	assert.Empty(t, record.TxSignature)
}

func TestDispatcherSubmitMarksPublishFailure(t *testing.T) {
	store := NewMemoryStore()
	dispatcher := NewDispatcher(store, brokenQueue{NewMemoryQueue(1)}, &countingSubmitter{})
	ctx := context.Background()

	_, err := dispatcher.Submit(ctx, testJob("t1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDispatchFailure))
	coded, ok := xerrors.From(err)
	require.True(t, ok)
	assert.Equal(t, "t1", coded.Metadata()[MetadataTransferID])

	record, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, record.Status)
	assert.Equal(t, string(CodeDispatchFailure), record.ErrorCode)
}

func TestDispatcherSubmitValidatesJob(t *testing.T) {
	store := NewMemoryStore()
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), &countingSubmitter{})

	job := testJob("t1")
	job.Instruction = nil
	_, err := dispatcher.Submit(context.Background(), job)
	require.Error(t, err)

	_, err = store.Get(context.Background(), "t1")
	assert.True(t, errors.Is(err, ErrTransferNotFound))
}

func TestDispatcherSubmitTimeout(t *testing.T) {
	store := NewMemoryStore()
	submitter := &countingSubmitter{latency: time.Second}
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter, WithSubmitTimeout(20*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing}))
	require.NoError(t, dispatcher.handle(ctx, testJob("t1")))
	waitForStatus(t, store, "t1", StatusError)
}

func TestParseLateResultPolicy(t *testing.T) {
	policy, err := ParseLateResultPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LateResultAccept, policy)

	policy, err = ParseLateResultPolicy(" Reject ")
	require.NoError(t, err)
	assert.Equal(t, LateResultReject, policy)

	_, err = ParseLateResultPolicy("ignore")
	assert.Error(t, err)
}

func TestDispatcherShutdownLetsInFlightSubmissionFinish(t *testing.T) {
	store := NewMemoryStore()
	started := make(chan struct{})
	release := make(chan struct{})
	submitter := SubmitterFunc(func(ctx context.Context, job Job) (*Outcome, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &Outcome{TxSignature: "sig-" + job.ID}, nil
	})
	dispatcher := NewDispatcher(store, NewMemoryQueue(4), submitter)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- dispatcher.Start(ctx) }()

	_, err := dispatcher.Submit(context.Background(), testJob("t1"))
	require.NoError(t, err)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not start")
	}
	cancel()

	select {
	case <-stopped:
		t.Fatal("consumer returned while a submission was still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	record, err := store.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, record.Status)
	assert.Equal(t, "sig-t1", record.TxSignature)
}

func TestDispatcherDoesNotStartSubmissionAfterShutdown(t *testing.T) {
	store := NewMemoryStore()
	submitter := &countingSubmitter{}
	dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, store.Create(context.Background(), &Record{ID: "t1", Status: StatusProcessing}))
	cancel()

	err := dispatcher.handle(ctx, testJob("t1"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, submitter.calls.Load())

	record, err := store.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, record.Status)
}

func TestDispatcherResultDeadline(t *testing.T) {
	now := time.Now()
	old := now.Add(-2 * time.Minute).UnixMilli()

	t.Run("reject persists timeout instead of a late result", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing, CreatedAt: old}))

		var clock atomic.Int64
		clock.Store(now.Add(-2 * time.Minute).UnixMilli())
		submitter := SubmitterFunc(func(context.Context, Job) (*Outcome, error) {
			clock.Store(now.UnixMilli())
			return &Outcome{TxSignature: "late"}, nil
		})
		dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter,
			WithLateResultPolicy(LateResultReject),
			WithResultDeadline(time.Minute),
		)
		dispatcher.now = func() time.Time { return time.UnixMilli(clock.Load()) }
		require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

		record, err := store.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, StatusTimeout, record.Status)
		assert.Empty(t, record.TxSignature)
		assert.Contains(t, record.Message, "1m0s")
	})

	t.Run("reject skips jobs already past the deadline", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing, CreatedAt: old}))

		submitter := &countingSubmitter{}
		dispatcher := NewDispatcher(store, NewMemoryQueue(1), submitter,
			WithLateResultPolicy(LateResultReject),
			WithResultDeadline(time.Minute),
		)
		dispatcher.now = func() time.Time { return now }
		require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

		record, err := store.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, StatusTimeout, record.Status)
		assert.Zero(t, submitter.calls.Load())
	})

	t.Run("accept records the late result", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, &Record{ID: "t1", Status: StatusProcessing, CreatedAt: old}))

		dispatcher := NewDispatcher(store, NewMemoryQueue(1), &countingSubmitter{}, WithResultDeadline(time.Minute))
		dispatcher.now = func() time.Time { return now }
		require.NoError(t, dispatcher.handle(ctx, testJob("t1")))

		record, err := store.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, record.Status)
	})
}
