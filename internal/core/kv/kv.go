// Package kv defines the local key-value storage used to persist page state.
package kv

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is a raw stored value with its write timestamps.
type Entry struct {
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KV is a persistent string-keyed store of JSON values. Writes overwrite any
// prior value (last writer wins). GetRaw on a missing key returns an error
// wrapping sql.ErrNoRows.
type KV interface {
	Set(ctx context.Context, key string, value any) error
	GetRaw(ctx context.Context, key string) (Entry, error)
}
