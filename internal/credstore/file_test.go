package credstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gridee/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *models.Session {
	return &models.Session{
		UserID:         "u1",
		Name:           "Rishabh",
		Email:          "rishabh@example.com",
		Phone:          "+919900112233",
		Role:           models.RoleUser,
		Token:          "jwt-token-abc",
		ParkingLotID:   "l1",
		ParkingLotName: "MG Road",
		VehicleNumbers: []string{"KA01AB1234"},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "u1", loaded.UserID)
	assert.Equal(t, models.RoleUser, loaded.Role)
	assert.Equal(t, "jwt-token-abc", loaded.Token)
	assert.Equal(t, "Rishabh", loaded.Name)
	assert.Equal(t, []string{"KA01AB1234"}, loaded.VehicleNumbers)
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStoreCorruptProfileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	rec := record{
		Authenticated: true,
		Token:         "tok",
		Role:          "OPERATOR",
		UserID:        "u9",
		Profile:       "{not json",
	}
	data, _ := json.Marshal(rec)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok", loaded.Token)
	assert.Equal(t, models.RoleOperator, loaded.Role)
	assert.Empty(t, loaded.Name) // profile dropped, session kept
}

func TestFileStoreCorruptFileMeansNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStoreClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession()))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx)) // second clear must also succeed

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession()))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "u1", loaded.UserID)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
