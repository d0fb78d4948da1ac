package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Queue runs background jobs on a bounded number of goroutines. Jobs outlive
// the request that enqueued them; Wait is the join point before shutdown.
//
// Go and Wait may be called concurrently. While a Wait is draining, Go blocks
// until the jobs scheduled before it have finished, so jobs must not call Go.
type Queue struct {
	sem chan struct{}

	// mu orders wg.Add against wg.Wait.
	mu  sync.Mutex
	wg  sync.WaitGroup
	ctx context.Context
	log zerolog.Logger
}

// NewQueue creates a queue running at most size jobs at once.
func NewQueue(size int, log zerolog.Logger) *Queue {
	if size <= 0 {
		size = 4
	}
	return &Queue{
		sem: make(chan struct{}, size),
		ctx: context.Background(),
		log: log,
	}
}

// Go schedules fn. A failing job is logged under name and otherwise ignored.
func (q *Queue) Go(name string, fn func(ctx context.Context) error) {
	q.mu.Lock()
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()

		q.sem <- struct{}{}
		defer func() { <-q.sem }()

		if err := fn(q.ctx); err != nil {
			q.log.Error().Err(err).Str("job", name).Msg("background job failed")
		}
	}()
}

// Wait blocks until every scheduled job has finished or ctx is done. Jobs
// scheduled by other goroutines during the drain start after it completes.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
