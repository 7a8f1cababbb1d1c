package history

import (
	"context"
	"path/filepath"
	"testing"

	"gridee/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	logger := zerolog.Nop()
	cache, err := Open(filepath.Join(t.TempDir(), "history.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func sampleHistory() []models.Booking {
	return []models.Booking{
		{ID: "b2", LotID: "lot1", SpotID: "sp2", Status: models.StatusCompleted, Amount: 80,
			VehicleNumber: "KA01AB1234", CreatedAt: "2026-08-27T09:00:00Z"},
		{ID: "b1", LotID: "lot1", SpotID: "sp1", Status: models.StatusCancelled, Amount: 40,
			CreatedAt: "2026-08-20T09:00:00Z"},
	}
}

func TestReplaceAndList(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Replace(ctx, "u1", sampleHistory()))

	bookings, err := cache.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "b2", bookings[0].ID)
	assert.Equal(t, 80.0, bookings[0].Amount)
	assert.Equal(t, "u1", bookings[0].UserID)
}

func TestReplaceDropsStaleRows(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Replace(ctx, "u1", sampleHistory()))
	require.NoError(t, cache.Replace(ctx, "u1", []models.Booking{
		{ID: "b3", LotID: "lot2", Status: models.StatusCompleted, CreatedAt: "2026-08-28T10:00:00Z"},
	}))

	bookings, err := cache.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b3", bookings[0].ID)
}

func TestUsersAreIsolated(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Replace(ctx, "u1", sampleHistory()))
	require.NoError(t, cache.Replace(ctx, "u2", []models.Booking{
		{ID: "x1", LotID: "lot9", Status: models.StatusCompleted},
	}))
	require.NoError(t, cache.Replace(ctx, "u2", nil)) // u2 history emptied

	u1, err := cache.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, u1, 2)

	u2, err := cache.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, u2)
}

func TestTransactionLedger(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.ReplaceTransactions(ctx, "u1", []models.Transaction{
		{ID: "t1", Status: "SUCCESS", Amount: -40, Timestamp: "2026-08-27T09:00:00Z"},
		{ID: "t2", Status: "SUCCESS", Amount: 100, Description: "top-up", Timestamp: "2026-08-28T10:00:00Z"},
	}))

	txns, err := cache.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "t2", txns[0].ID)
	assert.Equal(t, "top-up", txns[0].Description)

	require.NoError(t, cache.ReplaceTransactions(ctx, "u1", nil))
	txns, err = cache.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestLastSyncedAt(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	synced, err := cache.LastSyncedAt(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, synced.IsZero())

	require.NoError(t, cache.Replace(ctx, "u1", sampleHistory()))
	synced, err = cache.LastSyncedAt(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, synced.IsZero())
}
