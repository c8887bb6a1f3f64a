package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	var mu sync.Mutex
	seen := []string{}
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Key)
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{Kind: "purge", Key: "a"}))
	require.NoError(t, q.Enqueue(Job{Kind: "purge", Key: "b"}))
	q.Stop()

	assert.ElementsMatch(t, []string{"a", "b"}, seen)
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{Key: "early"})
	assert.ErrorIs(t, err, ErrNotStarted)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{Key: "late"}), ErrNotStarted)
}

func TestQueueFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{Key: "running"}))
	// Wait until the worker has taken the first job so the buffer holds exactly the second.
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{Key: "buffered"}))
	assert.ErrorIs(t, q.Enqueue(Job{Key: "overflow"}), ErrFull)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{Key: "flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		calls.Add(1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{Key: "broken"}))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()

	assert.Equal(t, int32(2), calls.Load())
}

func TestQueueRestartsAfterStop(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		calls.Add(1)
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{Key: "first"}))
	q.Stop()

	q.Start(context.Background())
	require.NotPanics(t, func() {
		require.NoError(t, q.Enqueue(Job{Key: "second"}))
	})
	q.Stop()
	q.Stop()

	assert.Equal(t, int32(2), calls.Load())
	assert.ErrorIs(t, q.Enqueue(Job{Key: "third"}), ErrNotStarted)
}
