package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gizmodojp/line-contact-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, workers, queueSize int) *WorkerPool {
	t.Helper()
	resetWorkerPoolMetricsForTesting()
	return NewWorkerPool(config.WorkerPoolConfig{
		MaxWorkers:             workers,
		QueueSize:              queueSize,
		ShutdownTimeoutSeconds: 5,
	})
}

func TestWorkerPool_ExecutesSubmittedJobs(t *testing.T) {
	pool := newTestPool(t, 2, 10)
	pool.Start()

	var executed atomic.Int32
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		ok := pool.Submit(Job{
			Name: "count",
			Execute: func(ctx context.Context) error {
				if executed.Add(1) == 5 {
					close(done)
				}
				return nil
			},
		})
		require.True(t, ok)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}
	assert.Equal(t, int32(5), executed.Load())

	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPool_SubmitBeforeStartQueues(t *testing.T) {
	pool := newTestPool(t, 1, 10)

	ok := pool.Submit(Job{Name: "early", Execute: func(ctx context.Context) error { return nil }})
	assert.True(t, ok)
	assert.Equal(t, 1, pool.QueueDepth())
	assert.False(t, pool.IsRunning())
}

func TestWorkerPool_DropsWhenQueueFull(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	noop := func(ctx context.Context) error { return nil }
	assert.True(t, pool.Submit(Job{Name: "first", Execute: noop}))
	assert.False(t, pool.Submit(Job{Name: "overflow", Execute: noop}),
		"a full queue drops rather than blocks")
}

func TestWorkerPool_JobErrorDoesNotStopWorkers(t *testing.T) {
	pool := newTestPool(t, 1, 10)
	pool.Start()

	done := make(chan struct{})
	require.True(t, pool.Submit(Job{
		Name:    "failing",
		Execute: func(ctx context.Context) error { return errors.New("boom") },
	}))
	require.True(t, pool.Submit(Job{
		Name: "after-failure",
		Execute: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a failing job")
	}

	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPool_ShutdownWaitsForInFlight(t *testing.T) {
	pool := newTestPool(t, 1, 10)
	pool.Start()

	started := make(chan struct{})
	var finished atomic.Bool
	require.True(t, pool.Submit(Job{
		Name: "slow",
		Execute: func(ctx context.Context) error {
			close(started)
			time.Sleep(100 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	}))

	<-started
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.True(t, finished.Load(), "shutdown should wait for the in-flight job")
	assert.False(t, pool.IsRunning())
}

func TestWorkerPool_ShutdownTimeout(t *testing.T) {
	pool := newTestPool(t, 1, 10)
	pool.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	require.True(t, pool.Submit(Job{
		Name: "stuck",
		Execute: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
}

func TestWorkerPool_ShutdownIdempotent(t *testing.T) {
	pool := newTestPool(t, 1, 10)
	pool.Start()

	require.NoError(t, pool.Shutdown(context.Background()))
	require.NoError(t, pool.Shutdown(context.Background()), "second shutdown is a no-op")
}
