package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "transfer_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransferNotFound))

	require.NoError(t, store.Create(ctx, &Record{ID: "transfer_1", Status: StatusProcessing, Intent: testIntent()}))
	record, err := store.Get(ctx, "transfer_1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, record.Status)
	assert.NotZero(t, record.CreatedAt)

	id := common.HexToHash("0x01")
	done, err := store.Update(ctx, "transfer_1", succeedWith(&Outcome{MessageID: &id, TxSignature: "sig"}))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, done.Status)
	assert.Equal(t, record.CreatedAt, done.CreatedAt)
	assert.GreaterOrEqual(t, done.UpdatedAt, record.UpdatedAt)

	_, err = store.Update(ctx, "transfer_1", failWith(errors.New("late"), ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransferFinalized))

	final, err := store.Get(ctx, "transfer_1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, &id, final.MessageID)
}

func TestMemoryStoreRejectsDuplicatesAndInvalidRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Record{ID: "a", Status: StatusProcessing}))
	err := store.Create(ctx, &Record{ID: "a", Status: StatusProcessing})
	assert.True(t, errors.Is(err, ErrTransferConflict))

	assert.Error(t, store.Create(ctx, &Record{ID: "", Status: StatusProcessing}))
	assert.Error(t, store.Create(ctx, &Record{ID: "b", Status: "done"}))

	_, err = store.Update(ctx, "missing", func(*Record) error { return nil })
	assert.True(t, errors.Is(err, ErrTransferNotFound))

	_, err = store.Update(ctx, "a", func(r *Record) error {
		r.Status = "bogus"
		return nil
	})
	assert.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Record{ID: "a", Status: StatusProcessing, Message: "queued"}))

	record, err := store.Get(ctx, "a")
	require.NoError(t, err)
	record.Message = "changed"
	record.Status = StatusSuccess

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "queued", again.Message)
	assert.Equal(t, StatusProcessing, again.Status)
}

func TestMemoryStoreMutatorCannotRewriteIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Record{ID: "a", Status: StatusProcessing}))

	updated, err := store.Update(ctx, "a", func(r *Record) error {
		r.ID = "b"
		r.CreatedAt = 1
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.ID)
	assert.NotEqual(t, int64(1), updated.CreatedAt)
}

func TestMemoryStoreListWithFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, store.Create(ctx, &Record{ID: id, Status: StatusProcessing, Route: "solana-devnet->ethereum-sepolia"}))
	}
	_, err := store.Update(ctx, "t2", failWith(errors.New("boom"), "stderr"))
	require.NoError(t, err)
	_, err = store.Update(ctx, "t3", succeedWith(&Outcome{TxSignature: "5abc"}))
	require.NoError(t, err)

	base := time.Now().Add(-2 * time.Minute).UnixMilli()
	store.mu.Lock()
	store.records["t1"].UpdatedAt = base
	store.records["t2"].UpdatedAt = base + 30_000
	store.records["t3"].UpdatedAt = base + 60_000
	store.mu.Unlock()

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].ID)

	failed, err := store.List(ctx, buildListOptions([]ListOption{WithStatuses(StatusError)}))
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "t2", failed[0].ID)
	assert.Equal(t, "stderr", failed[0].Logs)

	recent, err := store.List(ctx, buildListOptions([]ListOption{WithUpdatedSince(time.UnixMilli(base + 15_000))}))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	asc, err := store.List(ctx, buildListOptions([]ListOption{WithSortOrder(SortByUpdatedAsc), WithLimit(2)}))
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, "t1", asc[0].ID)

	bySignature, err := store.List(ctx, buildListOptions([]ListOption{WithQuery("5ABC")}))
	require.NoError(t, err)
	require.Len(t, bySignature, 1)
	assert.Equal(t, "t3", bySignature[0].ID)

	paged, err := store.List(ctx, buildListOptions([]ListOption{WithOffset(5)}))
	require.NoError(t, err)
	assert.Empty(t, paged)

	stats, err := store.Stats(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Processing)
	assert.Equal(t, 1, stats.Error)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, base, stats.OldestUpdatedAt)
	assert.Equal(t, base+60_000, stats.NewestUpdatedAt)
}
