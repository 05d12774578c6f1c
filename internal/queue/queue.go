// Package queue provides a durable, append-ordered work list for
// operations that must survive restarts and drain periodically, such as
// API mutations recorded while offline.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"crudkit/internal/store"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is how often a queue attempts to drain.
const DefaultInterval = 5 * time.Second

// Processor is invoked on every drain tick while the queue is non-empty.
// It decides what to do with the front items: Pop on success, PopToBack to
// defer an item behind the rest for round-robin retry.
type Processor[T any] func(ctx context.Context, q *Queue[T])

// Options configures a queue.
type Options[T any] struct {
	// Name identifies the queue's storage key. Required.
	Name string

	// Store persists the queue. Required.
	Store store.Store

	// Interval overrides the drain period.
	Interval time.Duration

	// Process handles drain ticks. A nil processor makes the queue a
	// passive durable list.
	Process Processor[T]

	// LoadFilter, when set, prunes or rewrites items restored from the
	// store before they enter the queue.
	LoadFilter func(items []T) []T
}

// Queue is a durable FIFO. Every mutation persists the queue through the
// store after the in-memory change; persistence failures are logged and
// the session continues, so a crash loses at most the last unpersisted
// mutation.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	name       string
	store      store.Store
	storageKey string
	interval   time.Duration
	process    Processor[T]
	loadFilter func(items []T) []T

	stop     chan struct{}
	stopOnce sync.Once
	running  bool
}

// New creates a queue. Call Init to load persisted items and start the
// drain timer.
func New[T any](opts Options[T]) *Queue[T] {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Queue[T]{
		name:       opts.Name,
		store:      opts.Store,
		storageKey: "crudkit.queue." + opts.Name,
		interval:   interval,
		process:    opts.Process,
		loadFilter: opts.LoadFilter,
		stop:       make(chan struct{}),
	}
}

// Init loads the persisted queue state and starts the drain timer. The
// processor runs until Stop is called or ctx is cancelled.
func (q *Queue[T]) Init(ctx context.Context) {
	q.load()
	q.start(ctx)
}

// load replaces the in-memory items with the persisted snapshot, if any.
func (q *Queue[T]) load() {
	raw, err := q.store.Get(q.storageKey)
	if err != nil {
		if err != store.ErrNotFound {
			logrus.WithError(err).WithField("queue", q.name).Warn("Queue: could not load persisted items")
		}
		return
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		logrus.WithError(err).WithField("queue", q.name).Warn("Queue: persisted items are malformed, ignoring")
		return
	}
	if q.loadFilter != nil {
		items = q.loadFilter(items)
	}

	q.mu.Lock()
	q.items = items
	q.mu.Unlock()

	logrus.WithFields(logrus.Fields{"queue": q.name, "items": len(items)}).Debug("Queue loaded")
}

// start launches the drain loop.
func (q *Queue[T]) start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go func() {
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()

		logrus.WithField("queue", q.name).Debug("Queue drain loop started")
		for {
			select {
			case <-ticker.C:
				if q.process != nil && q.Len() > 0 {
					q.process(ctx, q)
				}
			case <-q.stop:
				logrus.WithField("queue", q.name).Debug("Queue drain loop stopped")
				return
			case <-ctx.Done():
				logrus.WithField("queue", q.name).Debug("Queue drain loop cancelled")
				return
			}
		}
	}()
}

// Stop halts the drain timer. Safe to call more than once.
func (q *Queue[T]) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
}

// persist writes the queue snapshot through the store. Callers must hold
// the mutex.
func (q *Queue[T]) persist() {
	raw, err := json.Marshal(q.items)
	if err != nil {
		logrus.WithError(err).WithField("queue", q.name).Warn("Queue: could not encode items")
		return
	}
	if err := q.store.Set(q.storageKey, raw, 0); err != nil {
		logrus.WithError(err).WithField("queue", q.name).Warn("Queue: could not persist items")
	}
}

// Push appends an item and persists.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	q.persist()
}

// Pop removes and returns the front item; ok is false on an empty queue.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	q.persist()
	return item, true
}

// PopToBack removes the front item and re-appends it, deferring its
// processing behind the rest of the queue.
func (q *Queue[T]) PopToBack() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = append(q.items[1:], item)
	q.persist()
	return item, true
}

// Peek returns the front item without removing it.
func (q *Queue[T]) Peek() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false
	}
	return q.items[0], true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns the queued items: the live slice when byRef is set (the
// caller must not mutate it), otherwise a defensive copy.
func (q *Queue[T]) Items(byRef bool) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if byRef {
		return q.items
	}
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Find returns the first item matching the predicate.
func (q *Queue[T]) Find(match func(T) bool) (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, candidate := range q.items {
		if match(candidate) {
			return candidate, true
		}
	}
	return item, false
}

// FindAll returns every item matching the predicate, in queue order.
func (q *Queue[T]) FindAll(match func(T) bool) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []T
	for _, candidate := range q.items {
		if match(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}
