// Package worker runs per-wrestler jobs from a queue on a bounded pool.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/joshirank/internal/adapters/mq/queue"
	"github.com/okian/joshirank/pkg/logger"
	"github.com/okian/joshirank/pkg/metrics"
)

// Handler processes one job. Implementations must be safe for concurrent use.
type Handler interface {
	Handle(ctx context.Context, j queue.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, j queue.Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, j queue.Job) error { return f(ctx, j) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	onError func(queue.Job, error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  h,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				metrics.RecordWorkerError()
				w.logger.Warn(ctx, "job failed",
					logger.String("wrestler_id", job.WrestlerID),
					logger.Int("year", job.Year),
					logger.Error(err),
				)
				if w.onError != nil {
					w.onError(job, err)
				}
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process runs the handler, turning a panic into an error so one bad
// wrestler never takes the pool down.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s/%d panicked: %v", job.WrestlerID, job.Year, r)
		}
	}()
	metrics.RecordWorkerJob()
	return w.handler.Handle(ctx, job)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses one
// worker per CPU.
func NewPool(workerCount int, q Queue, h Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, h, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		metrics.UpdateWorkerActive(int(p.active.Add(1)))
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			defer func() { metrics.UpdateWorkerActive(int(p.active.Add(-1))) }()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue when it supports it and waits for the workers
// to drain it or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, w := range p.workers {
			w.stop()
		}
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("pool shutdown: %w", ctx.Err())
	}
}
