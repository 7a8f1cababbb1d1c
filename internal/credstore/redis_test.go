package credstore

import (
	"context"
	"testing"

	"gridee/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, testSession()))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, models.RoleUser, got.Role)
		assert.Equal(t, "jwt-token-abc", got.Token)
		assert.Equal(t, "MG Road", got.ParkingLotName)
	})

	t.Run("CorruptProfileDegrades", func(t *testing.T) {
		s.HSet(sessionKey, models.KeyProfile, "{broken")

		got, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "jwt-token-abc", got.Token)
		assert.Empty(t, got.Name)
	})

	t.Run("ClearIdempotent", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("LoadAfterOutage", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, testSession()))
		s.Close()

		_, err := store.Load(ctx)
		assert.Error(t, err)
	})
}
