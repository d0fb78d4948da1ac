// Package cache defines the response cache abstraction shared by the named
// cache generations and the structured record store.
package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrMiss is returned when no entry exists for a URL.
var ErrMiss = errors.New("cache miss")

// Entry is a stored response keyed by its absolute request URL.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// ContentType returns the entry's Content-Type header, if any.
func (e Entry) ContentType() string {
	return e.Header.Get("Content-Type")
}

// Response rebuilds an HTTP response for req from the entry. The response
// owns a private copy of the body.
func (e Entry) Response(req *http.Request) *http.Response {
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}

	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Length", strconv.Itoa(len(e.Body)))

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(bytes.Clone(e.Body))),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Cache is a URL-keyed response store.
type Cache interface {
	// Get returns the entry for url or an error wrapping ErrMiss.
	Get(ctx context.Context, url string) (Entry, error)
	// Put stores e, replacing any entry with the same URL.
	Put(ctx context.Context, e Entry) error
	// Evict removes the entry for url. Evicting a missing entry is not an error.
	Evict(ctx context.Context, url string) error
}

// Buckets manages named cache generations. Each bucket is a Cache.
type Buckets interface {
	// Open returns the named bucket, creating it when absent.
	Open(ctx context.Context, name string) (Cache, error)
	// Keys lists bucket names, oldest first.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a bucket with all of its entries. It reports whether the bucket existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Match looks up url across every bucket, oldest first.
	Match(ctx context.Context, url string) (Entry, error)
}

// Records is the structured record store: one response body per URL.
type Records interface {
	Cache
	List(ctx context.Context) ([]Entry, error)
}
