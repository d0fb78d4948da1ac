package task

import (
	"sync"
	"time"
)

// IDSource hands out creation-timestamp IDs. Values are strictly increasing
// within a source even when the clock stalls or steps backwards.
type IDSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDSource returns a source backed by the wall clock.
func NewIDSource() *IDSource {
	return &IDSource{now: time.Now}
}

// Seed makes the source continue after the given ID, e.g. the largest ID loaded from storage.
func (s *IDSource) Seed(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

// Next returns a new unique ID.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
