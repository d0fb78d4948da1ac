package stores

import (
	"context"
	"database/sql"
	"testing"

	"github.com/colonyops/tasklet/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newTestKVStore(t *testing.T) *KVStore {
	t.Helper()
	return NewKVStore(newTestDB(t))
}

func TestKVStore_SetAndGetRaw(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	type payload struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	err := store.Set(ctx, "test-key", payload{Name: "hello", Value: 42})
	require.NoError(t, err)

	raw, err := store.GetRaw(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-key", raw.Key)
	assert.JSONEq(t, `{"name":"hello","value":42}`, string(raw.Value))
	assert.False(t, raw.CreatedAt.IsZero())
}

func TestKVStore_GetRawNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	_, err := store.GetRaw(ctx, "nonexistent")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.True(t, IsNotFoundError(err))
}

func TestKVStore_SetOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "key", "first"))
	first, err := store.GetRaw(ctx, "key")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "key", "second"))

	raw, err := store.GetRaw(ctx, "key")
	require.NoError(t, err)
	assert.JSONEq(t, `"second"`, string(raw.Value))
	assert.Equal(t, first.CreatedAt, raw.CreatedAt, "created_at survives overwrite")
	assert.False(t, raw.UpdatedAt.Before(first.UpdatedAt))
}

func TestKVStore_SetEmptyListIsArray(t *testing.T) {
	ctx := context.Background()
	store := newTestKVStore(t)

	require.NoError(t, store.Set(ctx, "todos", []int{}))

	raw, err := store.GetRaw(ctx, "todos")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw.Value))
}
