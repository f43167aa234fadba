// Package poller runs timer-driven background fetches that keep their last
// known value.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fetch loads a fresh value
type Fetch[T any] func(ctx context.Context) (T, error)

// Recorder receives the result of every fetch
type Recorder interface {
	Poll(task string, err error)
}

// Snapshot is the task's current view. When the last fetch failed, Value
// still holds the last good value (or the zero value) and Stale is set.
type Snapshot[T any] struct {
	Value     T
	Loaded    bool
	Stale     bool
	Err       error
	UpdatedAt time.Time
}

type Option func(*options)

type options struct {
	debounce time.Duration
	log      logrus.FieldLogger
	recorder Recorder
}

// WithDebounce delays invalidation-triggered fetches until no invalidation
// has happened for d
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Task refetches a value every interval and shortly after each Invalidate
type Task[T any] struct {
	name     string
	interval time.Duration
	fetch    Fetch[T]
	opts     options
	log      logrus.FieldLogger

	mu      sync.RWMutex
	snap    Snapshot[T]
	subs    []chan struct{}
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	invalidate chan struct{}
}

// NewTask creates a stopped task
func NewTask[T any](name string, interval time.Duration, fetch Fetch[T], opts ...Option) *Task[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}

	return &Task[T]{
		name:       name,
		interval:   interval,
		fetch:      fetch,
		opts:       o,
		log:        o.log.WithField("task", name),
		invalidate: make(chan struct{}, 1),
	}
}

// Name returns the task name
func (t *Task[T]) Name() string {
	return t.name
}

// Start fetches immediately and then on every tick until ctx is done or Stop
// is called. Starting a running task is a no-op.
func (t *Task[T]) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.run(ctx, t.done)
}

// Stop cancels the loop and waits for it to exit. Subscriber channels are
// closed.
func (t *Task[T]) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done

	t.mu.Lock()
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
	t.mu.Unlock()
}

// Invalidate asks for a fetch once the debounce window has passed
func (t *Task[T]) Invalidate() {
	select {
	case t.invalidate <- struct{}{}:
	default:
	}
}

// Snapshot returns the current view
func (t *Task[T]) Snapshot() Snapshot[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Changes subscribes to snapshot updates. The channel is signalled after
// every fetch, coalescing signals the subscriber has not consumed yet.
func (t *Task[T]) Changes() <-chan struct{} {
	ch := make(chan struct{}, 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, ch)
	return ch
}

// Refresh fetches synchronously and returns the resulting snapshot
func (t *Task[T]) Refresh(ctx context.Context) Snapshot[T] {
	t.refresh(ctx)
	return t.Snapshot()
}

func (t *Task[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	debounce := time.NewTimer(t.opts.debounce)
	debounce.Stop()
	defer debounce.Stop()

	t.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh(ctx)
		case <-t.invalidate:
			if t.opts.debounce <= 0 {
				t.refresh(ctx)
				ticker.Reset(t.interval)
				continue
			}
			debounce.Reset(t.opts.debounce)
		case <-debounce.C:
			t.refresh(ctx)
			ticker.Reset(t.interval)
		}
	}
}

func (t *Task[T]) refresh(ctx context.Context) {
	value, err := t.fetch(ctx)
	if ctx.Err() != nil {
		// torn down mid-fetch
		return
	}

	if t.opts.recorder != nil {
		t.opts.recorder.Poll(t.name, err)
	}

	t.mu.Lock()
	if err != nil {
		t.snap.Stale = true
		t.snap.Err = err
	} else {
		t.snap = Snapshot[T]{
			Value:     value,
			Loaded:    true,
			UpdatedAt: time.Now(),
		}
	}
	subs := t.subs
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	t.mu.Unlock()

	if err != nil {
		t.log.WithError(err).Warn("fetch failed, keeping last value")
	}
}
