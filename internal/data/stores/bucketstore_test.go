package stores

import (
	"context"
	"net/http"
	"testing"

	"github.com/colonyops/tasklet/internal/core/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStore(t *testing.T) {
	ctx := context.Background()

	t.Run("open creates once and lists oldest first", func(t *testing.T) {
		store := NewBucketStore(newTestDB(t))

		_, err := store.Open(ctx, "todo-pwa-v0")
		require.NoError(t, err)
		_, err = store.Open(ctx, "todo-pwa-v1")
		require.NoError(t, err)
		_, err = store.Open(ctx, "todo-pwa-v0")
		require.NoError(t, err)

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"todo-pwa-v0", "todo-pwa-v1"}, keys)
	})

	t.Run("open rejects empty name", func(t *testing.T) {
		store := NewBucketStore(newTestDB(t))
		_, err := store.Open(ctx, "")
		assert.Error(t, err)
	})

	t.Run("put get evict", func(t *testing.T) {
		store := NewBucketStore(newTestDB(t))
		bucket, err := store.Open(ctx, "todo-pwa-v1")
		require.NoError(t, err)

		entry := cache.Entry{
			URL:    "http://localhost:8080/styles.css",
			Status: http.StatusOK,
			Header: http.Header{"Content-Type": {"text/css"}},
			Body:   []byte("body{}"),
		}
		require.NoError(t, bucket.Put(ctx, entry))

		got, err := bucket.Get(ctx, entry.URL)
		require.NoError(t, err)
		assert.Equal(t, entry.Body, got.Body)
		assert.Equal(t, "text/css", got.ContentType())
		assert.False(t, got.StoredAt.IsZero())

		require.NoError(t, bucket.Evict(ctx, entry.URL))
		_, err = bucket.Get(ctx, entry.URL)
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("match searches every bucket", func(t *testing.T) {
		store := NewBucketStore(newTestDB(t))
		old, err := store.Open(ctx, "todo-pwa-v0")
		require.NoError(t, err)
		cur, err := store.Open(ctx, "todo-pwa-v1")
		require.NoError(t, err)

		require.NoError(t, cur.Put(ctx, cache.Entry{URL: "http://h/app.js", Status: 200, Body: []byte("new")}))
		got, err := store.Match(ctx, "http://h/app.js")
		require.NoError(t, err)
		assert.Equal(t, "new", string(got.Body))

		require.NoError(t, old.Put(ctx, cache.Entry{URL: "http://h/app.js", Status: 200, Body: []byte("old")}))
		got, err = store.Match(ctx, "http://h/app.js")
		require.NoError(t, err)
		assert.Equal(t, "old", string(got.Body), "oldest bucket wins")

		_, err = store.Match(ctx, "http://h/missing")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})

	t.Run("delete drops entries", func(t *testing.T) {
		store := NewBucketStore(newTestDB(t))
		bucket, err := store.Open(ctx, "todo-pwa-v0")
		require.NoError(t, err)
		require.NoError(t, bucket.Put(ctx, cache.Entry{URL: "http://h/", Status: 200, Body: []byte("x")}))

		existed, err := store.Delete(ctx, "todo-pwa-v0")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = store.Delete(ctx, "todo-pwa-v0")
		require.NoError(t, err)
		assert.False(t, existed)

		n, err := store.Count(ctx, "todo-pwa-v0")
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = store.Match(ctx, "http://h/")
		assert.ErrorIs(t, err, cache.ErrMiss)
	})
}
