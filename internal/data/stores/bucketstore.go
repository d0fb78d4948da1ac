package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/colonyops/tasklet/internal/core/cache"
	"github.com/colonyops/tasklet/internal/data/db"
)

// BucketStore implements cache.Buckets using SQLite. Each named bucket is a
// cache generation; deleting a bucket drops all of its entries.
type BucketStore struct {
	db *db.DB
}

var _ cache.Buckets = (*BucketStore)(nil)

// NewBucketStore creates a new SQLite-backed bucket store.
func NewBucketStore(db *db.DB) *BucketStore {
	return &BucketStore{db: db}
}

// Open returns the named bucket, creating it when absent.
func (s *BucketStore) Open(ctx context.Context, name string) (cache.Cache, error) {
	if name == "" {
		return nil, fmt.Errorf("open bucket: empty name")
	}
	if err := s.db.Queries().BucketCreate(ctx, name, time.Now().UnixNano()); err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", name, err)
	}
	return &Bucket{db: s.db, name: name}, nil
}

// Keys lists bucket names, oldest first.
func (s *BucketStore) Keys(ctx context.Context) ([]string, error) {
	names, err := s.db.Queries().BucketList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	return names, nil
}

// Delete removes a bucket and its entries in one transaction. It reports
// whether the bucket existed.
func (s *BucketStore) Delete(ctx context.Context, name string) (bool, error) {
	var existed bool
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		if _, err := q.EntryDeleteBucket(ctx, name); err != nil {
			return err
		}
		n, err := q.BucketDelete(ctx, name)
		if err != nil {
			return err
		}
		existed = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete bucket %q: %w", name, err)
	}
	return existed, nil
}

// Match finds url in any bucket, preferring the oldest bucket.
func (s *BucketStore) Match(ctx context.Context, url string) (cache.Entry, error) {
	row, err := s.db.Queries().EntryMatch(ctx, url)
	if IsNotFoundError(err) {
		return cache.Entry{}, fmt.Errorf("match %q: %w", url, cache.ErrMiss)
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("match %q: %w", url, err)
	}
	return rowToEntry(row)
}

// Count returns the number of entries stored in the named bucket.
func (s *BucketStore) Count(ctx context.Context, name string) (int64, error) {
	n, err := s.db.Queries().EntryCount(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("count bucket %q: %w", name, err)
	}
	return n, nil
}

// Bucket is a handle on one named bucket.
type Bucket struct {
	db   *db.DB
	name string
}

var _ cache.Cache = (*Bucket)(nil)

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Get returns the entry for url in this bucket.
func (b *Bucket) Get(ctx context.Context, url string) (cache.Entry, error) {
	row, err := b.db.Queries().EntryGet(ctx, b.name, url)
	if IsNotFoundError(err) {
		return cache.Entry{}, fmt.Errorf("bucket %q get %q: %w", b.name, url, cache.ErrMiss)
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("bucket %q get %q: %w", b.name, url, err)
	}
	return rowToEntry(row)
}

// Put stores e in this bucket, replacing any entry for the same URL.
func (b *Bucket) Put(ctx context.Context, e cache.Entry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("bucket %q put %q marshal header: %w", b.name, e.URL, err)
	}

	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	err = b.db.Queries().EntryPut(ctx, db.CacheEntry{
		Bucket:   b.name,
		URL:      e.URL,
		Status:   int64(e.Status),
		Header:   string(header),
		Body:     e.Body,
		StoredAt: storedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("bucket %q put %q: %w", b.name, e.URL, err)
	}
	return nil
}

// Evict removes the entry for url from this bucket.
func (b *Bucket) Evict(ctx context.Context, url string) error {
	if err := b.db.Queries().EntryDelete(ctx, b.name, url); err != nil {
		return fmt.Errorf("bucket %q evict %q: %w", b.name, url, err)
	}
	return nil
}

func rowToEntry(row db.CacheEntry) (cache.Entry, error) {
	var header http.Header
	if err := json.Unmarshal([]byte(row.Header), &header); err != nil {
		return cache.Entry{}, fmt.Errorf("unmarshal header for %q: %w", row.URL, err)
	}

	return cache.Entry{
		URL:      row.URL,
		Status:   int(row.Status),
		Header:   header,
		Body:     row.Body,
		StoredAt: time.Unix(0, row.StoredAt),
	}, nil
}
