package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = errors.New("queue closed")

// Event is one UI event: a function that runs to completion on the worker
// that owns Key.
type Event struct {
	Key  string
	Run  func()
	done chan struct{}
}

// Queue is a sharded event loop. Events with the same key always land on the
// same shard and therefore run one at a time, in submission order.
type Queue struct {
	shards []chan Event
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func New(shards, buf int, log *zap.Logger) *Queue {
	if shards < 1 {
		shards = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{shards: make([]chan Event, shards), log: log}
	for i := range q.shards {
		q.shards[i] = make(chan Event, buf)
	}
	return q
}

func (q *Queue) shardFor(key string) chan Event {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return q.shards[h.Sum32()%uint32(len(q.shards))]
}

// Submit enqueues fn under key and blocks until it has run.
func (q *Queue) Submit(ctx context.Context, key string, fn func()) error {
	ev := Event{Key: key, Run: fn, done: make(chan struct{})}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	select {
	case q.shardFor(key) <- ev:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-ev.done:
		return nil
	case <-ctx.Done():
		// fn still runs; the caller just stops waiting for it.
		return ctx.Err()
	}
}

// Len reports events waiting across all shards.
func (q *Queue) Len() int {
	n := 0
	for _, ch := range q.shards {
		n += len(ch)
	}
	return n
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for _, ch := range q.shards {
		close(ch)
	}
}

// StartWorkers starts one worker per shard. Workers stop when ctx is canceled
// or when the queue is closed and drained.
func (q *Queue) StartWorkers(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(len(q.shards))
	for i, ch := range q.shards {
		workerNumber := i + 1
		go func(ch chan Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					q.log.Info("context canceled, worker stopping", zap.Int("worker", workerNumber))
					return
				case ev, ok := <-ch:
					if !ok {
						q.log.Info("queue closed, worker stopping", zap.Int("worker", workerNumber))
						return
					}
					q.run(ev)
				}
			}
		}(ch)
	}
	return &wg
}

func (q *Queue) run(ev Event) {
	defer close(ev.done)
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("event panicked", zap.String("key", ev.Key), zap.Any("panic", r))
		}
	}()
	ev.Run()
}
