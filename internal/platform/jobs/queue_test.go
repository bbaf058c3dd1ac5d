package jobs

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_RunsJobsOneAtATimeInOrder(t *testing.T) {
	q := NewQueue(10)
	q.Start(context.Background())

	var (
		running atomic.Int32
		maxSeen atomic.Int32
		mu      sync.Mutex
		order   []int
	)
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, q.Enqueue("job", func(context.Context) {
			n := running.Add(1)
			for {
				seen := maxSeen.Load()
				if n <= seen || maxSeen.CompareAndSwap(seen, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Shutdown(ctx))
	require.Equal(t, int32(1), maxSeen.Load())
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueue_RejectsWhenFullOrClosed(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Enqueue("first", func(context.Context) {}))
	require.ErrorIs(t, q.Enqueue("second", func(context.Context) {}), ErrQueueFull)

	require.NoError(t, q.Shutdown(context.Background()))
	require.ErrorIs(t, q.Enqueue("late", func(context.Context) {}), ErrQueueClosed)
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_ShutdownCancelsRunningJobOnDeadline(t *testing.T) {
	q := NewQueue(1)
	q.Start(context.Background())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, q.Enqueue("slow", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)
	<-cancelled
}

func TestQueue_SurvivesPanickingJob(t *testing.T) {
	q := NewQueue(2)
	q.Start(context.Background())

	ran := make(chan struct{})
	require.NoError(t, q.Enqueue("boom", func(context.Context) { panic("boom") }))
	require.NoError(t, q.Enqueue("after", func(context.Context) { close(ran) }))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job after panic never ran")
	}
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_StartIgnoresCallerCancellation(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	cancel()

	done := make(chan error, 1)
	require.NoError(t, q.Enqueue("job", func(jobCtx context.Context) { done <- jobCtx.Err() }))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_ShutdownDropsPendingJobsAfterDeadline(t *testing.T) {
	var logs bytes.Buffer
	q := NewQueue(4, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	q.Start(context.Background())

	started := make(chan struct{})
	var pendingRan atomic.Int32
	require.NoError(t, q.Enqueue("slow", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue("pending", func(context.Context) {
			pendingRan.Add(1)
			time.Sleep(time.Hour)
		}))
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- q.Shutdown(ctx) }()

	select {
	case err := <-shutdownDone:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown waited for jobs that never started")
	}
	require.Zero(t, pendingRan.Load())
	require.Contains(t, logs.String(), "dropped=3")
}
