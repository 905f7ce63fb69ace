// Package queue carries per-wrestler jobs from the orchestrator to the
// worker pool.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/joshirank/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job asks for the attribution and classification of one wrestler in one
// scope. Year 0 is the all-years scope.
type Job struct {
	WrestlerID string
	Year       int
}

// Queue provides bounded enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a job without blocking. It returns false when the queue is
	// full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// Submit adds a job, waiting for room until ctx is done.
	Submit(ctx context.Context, j Job) error

	// Dequeue returns the channel workers read from. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of buffered jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Buffered jobs are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueDepth(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		return false
	}
	select {
	case q.jobs <- j:
		metrics.UpdateQueueDepth(len(q.jobs))
		return true
	case <-ctx.Done():
		metrics.RecordQueueRejected()
		return false
	default:
		metrics.RecordQueueRejected()
		return false
	}
}

// Submit adds a job, blocking while the queue is full. Close must not be
// called concurrently with a blocked Submit from the same producer.
func (q *InMemoryQueue) Submit(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		metrics.UpdateQueueDepth(len(q.jobs))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueRejected()
		return fmt.Errorf("submit %s: %w", j.WrestlerID, ctx.Err())
	}
}

// Dequeue returns the job channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	n := len(q.jobs)
	metrics.UpdateQueueDepth(n)
	return n
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
