package credstore

import (
	"context"
	"errors"
	"testing"

	"gridee/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails every call while broken is set.
type flakyStore struct {
	inner  Store
	broken bool
}

func (f *flakyStore) Save(ctx context.Context, s *models.Session) error {
	if f.broken {
		return errors.New("store down")
	}
	return f.inner.Save(ctx, s)
}

func (f *flakyStore) Load(ctx context.Context) (*models.Session, error) {
	if f.broken {
		return nil, errors.New("store down")
	}
	return f.inner.Load(ctx)
}

func (f *flakyStore) Clear(ctx context.Context) error {
	if f.broken {
		return errors.New("store down")
	}
	return f.inner.Clear(ctx)
}

func TestFailoverStore(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := &flakyStore{inner: NewMemoryStore()}
		fallback := NewMemoryStore()
		fo := NewFailoverStore(primary, fallback, &logger)

		require.NoError(t, fo.Save(ctx, testSession()))

		got, err := fo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.UserID)

		// Healthy saves mirror into the fallback.
		mirrored, err := fallback.Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, mirrored)
	})

	t.Run("FallbackOnPrimaryFailure", func(t *testing.T) {
		primary := &flakyStore{inner: NewMemoryStore(), broken: true}
		fallback := NewMemoryStore()
		fo := NewFailoverStore(primary, fallback, &logger)

		require.NoError(t, fo.Save(ctx, testSession()))

		got, err := fo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "jwt-token-abc", got.Token)
	})

	t.Run("ClearReachesBothStores", func(t *testing.T) {
		primary := &flakyStore{inner: NewMemoryStore()}
		fallback := NewMemoryStore()
		fo := NewFailoverStore(primary, fallback, &logger)

		require.NoError(t, fo.Save(ctx, testSession()))
		require.NoError(t, fo.Clear(ctx))

		got, err := fallback.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = primary.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearReportsPrimaryError", func(t *testing.T) {
		primary := &flakyStore{inner: NewMemoryStore(), broken: true}
		fallback := NewMemoryStore()
		fo := NewFailoverStore(primary, fallback, &logger)

		require.NoError(t, fallback.Save(ctx, testSession()))
		assert.Error(t, fo.Clear(ctx))

		// Fallback copy is gone regardless.
		got, err := fallback.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
