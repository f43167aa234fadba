package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type countingRecorder struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (r *countingRecorder) Poll(task string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func TestTaskFetchesOnStartAndTick(t *testing.T) {
	var calls int32
	task := NewTask("counter", 20*time.Millisecond, func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}, WithLogger(quietLogger()))

	changes := task.Changes()
	task.Start(context.Background())
	defer task.Stop()

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no initial fetch")
	}
	assert.True(t, task.Snapshot().Loaded)

	require.Eventually(t, func() bool {
		return task.Snapshot().Value >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestTaskKeepsLastValueWhenStale(t *testing.T) {
	var fail atomic.Bool
	rec := &countingRecorder{}
	task := NewTask("price", time.Hour, func(ctx context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("upstream down")
		}
		return "1834.12", nil
	}, WithLogger(quietLogger()), WithRecorder(rec))

	snap := task.Refresh(context.Background())
	assert.Equal(t, "1834.12", snap.Value)
	assert.False(t, snap.Stale)

	fail.Store(true)
	snap = task.Refresh(context.Background())
	assert.Equal(t, "1834.12", snap.Value)
	assert.True(t, snap.Stale)
	assert.EqualError(t, snap.Err, "upstream down")

	fail.Store(false)
	snap = task.Refresh(context.Background())
	assert.False(t, snap.Stale)
	assert.NoError(t, snap.Err)

	assert.Equal(t, 2, rec.ok)
	assert.Equal(t, 1, rec.failed)
}

func TestTaskStaleBeforeFirstValue(t *testing.T) {
	task := NewTask("gas", time.Hour, func(ctx context.Context) (int, error) {
		return 0, errors.New("rate limited")
	}, WithLogger(quietLogger()))

	snap := task.Refresh(context.Background())
	assert.False(t, snap.Loaded)
	assert.True(t, snap.Stale)
	assert.Zero(t, snap.Value)
}

func TestTaskInvalidateIsDebounced(t *testing.T) {
	var calls int32
	task := NewTask("price", time.Hour, func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}, WithLogger(quietLogger()), WithDebounce(50*time.Millisecond))

	task.Start(context.Background())
	defer task.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		task.Invalidate()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTaskStopWaitsAndClosesSubscribers(t *testing.T) {
	var calls int32
	task := NewTask("activity", 5*time.Millisecond, func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}, WithLogger(quietLogger()))

	changes := task.Changes()
	task.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, time.Millisecond)

	task.Stop()
	after := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls))

	for range changes {
	}

	// stopping twice is fine
	task.Stop()
}

func TestTaskStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once

	task := NewTask("balances", time.Hour, func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return 0, ctx.Err()
	}, WithLogger(quietLogger()))

	task.Start(ctx)
	<-started
	cancel()
	task.Stop()

	// a fetch cut short by teardown is not reported as a failure
	assert.False(t, task.Snapshot().Stale)
}
