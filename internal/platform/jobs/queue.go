// Package jobs runs detached background work on a single worker goroutine.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueClosed is returned when enqueuing after Shutdown.
	ErrQueueClosed = errors.New("job queue closed")
	// ErrQueueFull is returned when the pending buffer has no room left.
	ErrQueueFull = errors.New("job queue full")
)

// DefaultCapacity is the number of jobs that may wait behind the running one.
const DefaultCapacity = 64

// Job is a unit of background work. The context is cancelled only when Shutdown gives up waiting.
type Job func(ctx context.Context)

type task struct {
	name       string
	run        Job
	enqueuedAt time.Time
}

// Queue executes jobs one at a time in FIFO order. It owns exactly one worker, so at most one job
// is in flight for the lifetime of the queue.
type Queue struct {
	tasks  chan task
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger injects the logger used for job lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// NewQueue builds a stopped queue buffering up to capacity pending jobs.
func NewQueue(capacity int, opts ...Option) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		tasks:  make(chan task, capacity),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// Start launches the worker. Cancellation of ctx is not propagated to jobs; use Shutdown to stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	go q.work(workerCtx)
}

// Enqueue schedules job behind any pending ones without blocking.
func (q *Queue) Enqueue(name string, job Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task{name: name, run: job, enqueuedAt: time.Now()}:
		return nil
	default:
		return fmt.Errorf("%w: %d jobs pending", ErrQueueFull, len(q.tasks))
	}
}

// Pending reports the number of jobs waiting for the worker.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Shutdown stops accepting jobs and waits for the pending ones to finish. When ctx expires first the
// running job's context is cancelled, jobs that have not started are dropped and ctx.Err() is returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	started := q.started
	q.mu.Unlock()

	if !started {
		if dropped := len(q.tasks); dropped > 0 {
			q.logger.Warn("job queue shut down before start", slog.Int("dropped", dropped))
		}
		return nil
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return ctx.Err()
	}
}

func (q *Queue) work(ctx context.Context) {
	defer close(q.done)
	defer q.cancel()
	dropped := 0
	for t := range q.tasks {
		if ctx.Err() != nil {
			dropped++
			continue
		}
		q.run(ctx, t)
	}
	if dropped > 0 {
		q.logger.Warn("job queue shut down past deadline", slog.Int("dropped", dropped))
	}
}

func (q *Queue) run(ctx context.Context, t task) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", slog.String("job", t.name), slog.Any("panic", r))
		}
	}()
	q.logger.Info("job started", slog.String("job", t.name), slog.Duration("waited", started.Sub(t.enqueuedAt)))
	t.run(ctx)
	q.logger.Info("job finished", slog.String("job", t.name), slog.Duration("took", time.Since(started)))
}
