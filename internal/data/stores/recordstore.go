package stores

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/colonyops/tasklet/internal/core/cache"
	"github.com/colonyops/tasklet/internal/data/db"
)

const (
	putAttempts = 3
	putBackoff  = 20 * time.Millisecond
)

// RecordStore implements cache.Records over the structured record database.
// Only the body and its content type are kept; replayed entries are 200s.
type RecordStore struct {
	db *db.DB
}

var _ cache.Records = (*RecordStore)(nil)

// NewRecordStore creates a record store on a database opened with db.OpenRecords.
func NewRecordStore(db *db.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Get returns the record for url.
func (s *RecordStore) Get(ctx context.Context, url string) (cache.Entry, error) {
	row, err := s.db.Queries().RecordGet(ctx, url)
	if IsNotFoundError(err) {
		return cache.Entry{}, fmt.Errorf("record get %q: %w", url, cache.ErrMiss)
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("record get %q: %w", url, err)
	}
	return recordToEntry(row), nil
}

// Put stores the body of e under its URL. Writes that hit a locked
// database are retried a few times before giving up.
func (s *RecordStore) Put(ctx context.Context, e cache.Entry) error {
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	row := db.Record{
		URL:         e.URL,
		Response:    e.Body,
		ContentType: e.ContentType(),
		StoredAt:    storedAt.UnixNano(),
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = s.db.Queries().RecordPut(ctx, row)
		if err == nil || !IsBusyError(err) || attempt == putAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("record put %q: %w", e.URL, ctx.Err())
		case <-time.After(time.Duration(attempt) * putBackoff):
		}
	}
	if err != nil {
		return fmt.Errorf("record put %q: %w", e.URL, err)
	}
	return nil
}

// Evict removes the record for url.
func (s *RecordStore) Evict(ctx context.Context, url string) error {
	if err := s.db.Queries().RecordDelete(ctx, url); err != nil {
		return fmt.Errorf("record evict %q: %w", url, err)
	}
	return nil
}

// List returns every record ordered by URL.
func (s *RecordStore) List(ctx context.Context) ([]cache.Entry, error) {
	rows, err := s.db.Queries().RecordList(ctx)
	if err != nil {
		return nil, fmt.Errorf("record list: %w", err)
	}

	entries := make([]cache.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, recordToEntry(row))
	}
	return entries, nil
}

func recordToEntry(row db.Record) cache.Entry {
	header := make(http.Header)
	if row.ContentType != "" {
		header.Set("Content-Type", row.ContentType)
	}

	return cache.Entry{
		URL:      row.URL,
		Status:   http.StatusOK,
		Header:   header,
		Body:     row.Response,
		StoredAt: time.Unix(0, row.StoredAt),
	}
}
