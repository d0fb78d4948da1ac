package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the typed statements used by the stores.
type Queries struct {
	db DBTX
}

// New binds a query set to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// KvStore is a row of kv_store.
type KvStore struct {
	Key       string
	Value     []byte
	CreatedAt int64
	UpdatedAt int64
}

// KVSetParams are the arguments of KVSet.
type KVSetParams struct {
	Key       string
	Value     []byte
	CreatedAt int64
	UpdatedAt int64
}

const kvGet = `SELECT key, value, created_at, updated_at FROM kv_store WHERE key = ?`

func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	var row KvStore
	err := q.db.QueryRowContext(ctx, kvGet, key).Scan(&row.Key, &row.Value, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

// created_at survives overwrites; only value and updated_at change.
const kvSet = `
INSERT INTO kv_store (key, value, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, kvSet, arg.Key, arg.Value, arg.CreatedAt, arg.UpdatedAt)
	return err
}

// CacheEntry is a row of cache_entries.
type CacheEntry struct {
	Bucket   string
	URL      string
	Status   int64
	Header   string
	Body     []byte
	StoredAt int64
}

const bucketCreate = `INSERT OR IGNORE INTO cache_buckets (name, created_at) VALUES (?, ?)`

func (q *Queries) BucketCreate(ctx context.Context, name string, createdAt int64) error {
	_, err := q.db.ExecContext(ctx, bucketCreate, name, createdAt)
	return err
}

const bucketList = `SELECT name FROM cache_buckets ORDER BY created_at, name`

func (q *Queries) BucketList(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, bucketList)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

const bucketDelete = `DELETE FROM cache_buckets WHERE name = ?`

func (q *Queries) BucketDelete(ctx context.Context, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, bucketDelete, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const entryDeleteBucket = `DELETE FROM cache_entries WHERE bucket = ?`

func (q *Queries) EntryDeleteBucket(ctx context.Context, bucket string) (int64, error) {
	res, err := q.db.ExecContext(ctx, entryDeleteBucket, bucket)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const entryGet = `
SELECT bucket, url, status, header, body, stored_at FROM cache_entries
WHERE bucket = ? AND url = ?`

func (q *Queries) EntryGet(ctx context.Context, bucket, url string) (CacheEntry, error) {
	var row CacheEntry
	err := q.db.QueryRowContext(ctx, entryGet, bucket, url).
		Scan(&row.Bucket, &row.URL, &row.Status, &row.Header, &row.Body, &row.StoredAt)
	return row, err
}

const entryPut = `
INSERT INTO cache_entries (bucket, url, status, header, body, stored_at) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(bucket, url) DO UPDATE SET
	status = excluded.status, header = excluded.header, body = excluded.body, stored_at = excluded.stored_at`

func (q *Queries) EntryPut(ctx context.Context, arg CacheEntry) error {
	_, err := q.db.ExecContext(ctx, entryPut, arg.Bucket, arg.URL, arg.Status, arg.Header, arg.Body, arg.StoredAt)
	return err
}

const entryDelete = `DELETE FROM cache_entries WHERE bucket = ? AND url = ?`

func (q *Queries) EntryDelete(ctx context.Context, bucket, url string) error {
	_, err := q.db.ExecContext(ctx, entryDelete, bucket, url)
	return err
}

const entryMatch = `
SELECT e.bucket, e.url, e.status, e.header, e.body, e.stored_at
FROM cache_entries e JOIN cache_buckets b ON b.name = e.bucket
WHERE e.url = ?
ORDER BY b.created_at, b.name
LIMIT 1`

func (q *Queries) EntryMatch(ctx context.Context, url string) (CacheEntry, error) {
	var row CacheEntry
	err := q.db.QueryRowContext(ctx, entryMatch, url).
		Scan(&row.Bucket, &row.URL, &row.Status, &row.Header, &row.Body, &row.StoredAt)
	return row, err
}

const entryCount = `SELECT COUNT(*) FROM cache_entries WHERE bucket = ?`

func (q *Queries) EntryCount(ctx context.Context, bucket string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, entryCount, bucket).Scan(&count)
	return count, err
}

// Record is a row of the record store's cache table.
type Record struct {
	URL         string
	Response    []byte
	ContentType string
	StoredAt    int64
}

const recordPut = `
INSERT INTO cache (url, response, content_type, stored_at) VALUES (?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	response = excluded.response, content_type = excluded.content_type, stored_at = excluded.stored_at`

func (q *Queries) RecordPut(ctx context.Context, arg Record) error {
	_, err := q.db.ExecContext(ctx, recordPut, arg.URL, arg.Response, arg.ContentType, arg.StoredAt)
	return err
}

const recordGet = `SELECT url, response, content_type, stored_at FROM cache WHERE url = ?`

func (q *Queries) RecordGet(ctx context.Context, url string) (Record, error) {
	var row Record
	err := q.db.QueryRowContext(ctx, recordGet, url).Scan(&row.URL, &row.Response, &row.ContentType, &row.StoredAt)
	return row, err
}

const recordDelete = `DELETE FROM cache WHERE url = ?`

func (q *Queries) RecordDelete(ctx context.Context, url string) error {
	_, err := q.db.ExecContext(ctx, recordDelete, url)
	return err
}

const recordList = `SELECT url, response, content_type, stored_at FROM cache ORDER BY url`

func (q *Queries) RecordList(ctx context.Context) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, recordList)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.URL, &r.Response, &r.ContentType, &r.StoredAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
