// Package queue implements the deduplicating background work queue:
// enqueued artifact keys are drained by a fixed-size worker pool, with a
// pending-work set preventing two workers from transcoding the same key
// at once.
package queue

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/symcached/symcached/internal/logger"
	"github.com/symcached/symcached/internal/metrics"
	"github.com/symcached/symcached/internal/telemetry"
	"github.com/symcached/symcached/pkg/artifact"
)

// stopJoinTimeout bounds how long Stop waits for each worker to exit.
// Transcodes spawn long-running child processes that may outlive
// shutdown; operators are expected to supervise those directly.
const stopJoinTimeout = 500 * time.Millisecond

// Transcoder is the single operation the queue drives in the background.
type Transcoder interface {
	TryTranscode(ctx context.Context, key artifact.Key) (string, error)
}

// Queue is a multi-producer/multi-consumer FIFO of artifact keys, backed
// by a worker pool sized to the number of available CPUs and a pending-set
// that deduplicates background work only — the synchronous request path
// never consults it.
type Queue struct {
	transcoder  Transcoder
	workerCount int
	metrics     *metrics.Metrics

	mu      sync.Mutex
	fifo    *list.List
	pending map[artifact.Key]struct{}
	wake    chan struct{}

	shutdownCtx context.Context
	shutdownFn  context.CancelFunc
	wg          sync.WaitGroup

	started int32
	stopped int32
}

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithWorkerCount overrides the worker pool size; the zero value (or an
// option that isn't applied) leaves the default of runtime.NumCPU().
func WithWorkerCount(n int) Option {
	return func(q *Queue) {
		q.workerCount = n
	}
}

// WithMetrics attaches the instrument set the queue samples its depth
// gauge and dedup-skip counter against. m may be nil, disabling
// instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

// New constructs a Queue driving transcoder. Workers are not spawned
// until Start is called.
func New(transcoder Transcoder, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		transcoder:  transcoder,
		fifo:        list.New(),
		pending:     make(map[artifact.Key]struct{}),
		wake:        make(chan struct{}, 1),
		shutdownCtx: ctx,
		shutdownFn:  cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds key to the FIFO and wakes a worker. It never blocks.
func (q *Queue) Enqueue(key artifact.Key) {
	q.mu.Lock()
	q.fifo.PushBack(key)
	depth := q.fifo.Len()
	q.mu.Unlock()
	q.metrics.SetQueueDepth(depth)
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start spawns the WithWorkerCount number of workers (runtime.NumCPU()
// when that is unset or below 1) and transitions the queue to
// running. Calling Start twice is a programmer error.
func (q *Queue) Start() error {
	if !atomic.CompareAndSwapInt32(&q.started, 0, 1) {
		return fmt.Errorf("queue: already started")
	}

	workers := q.workerCount
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.workerLoop(i)
	}
	return nil
}

// Stop signals shutdown and joins workers with a bounded per-worker wait,
// returning regardless of whether every worker has actually exited — a
// worker's in-flight child process may outlive this call. Safe to call
// more than once.
func (q *Queue) Stop() {
	if !atomic.CompareAndSwapInt32(&q.stopped, 0, 1) {
		return
	}
	q.shutdownFn()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
	}
}

func (q *Queue) workerLoop(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.shutdownCtx.Done():
			return
		case <-q.wake:
		}

		for {
			key, ok := q.dequeue()
			if !ok {
				break
			}
			q.process(id, key)
		}
	}
}

func (q *Queue) dequeue() (artifact.Key, bool) {
	q.mu.Lock()
	front := q.fifo.Front()
	if front == nil {
		q.mu.Unlock()
		return artifact.Key{}, false
	}
	q.fifo.Remove(front)
	depth := q.fifo.Len()

	// Multiple enqueues may have collapsed into a single wake signal; if
	// there is still work left, re-arm it for the next iteration.
	if depth > 0 {
		q.signal()
	}
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	return front.Value.(artifact.Key), true
}

func (q *Queue) process(workerID int, key artifact.Key) {
	if !q.tryAcquire(key) {
		return
	}
	defer q.release(key)

	ctx, span := telemetry.StartSpan(q.shutdownCtx, telemetry.SpanQueueDrain)
	defer span.End()

	slog.Debug("background transcode starting", logger.ArtifactName(key.Name), slog.Int("worker_id", workerID))

	if _, err := q.transcoder.TryTranscode(ctx, key); err != nil && ctx.Err() == nil {
		slog.Error("background transcode failed", logger.ArtifactName(key.Name), logger.Err(err))
	}
}

func (q *Queue) tryAcquire(key artifact.Key) bool {
	q.mu.Lock()
	_, exists := q.pending[key]
	if !exists {
		q.pending[key] = struct{}{}
	}
	q.mu.Unlock()

	if exists {
		q.metrics.IncQueueDedupSkipped()
		return false
	}
	return true
}

func (q *Queue) release(key artifact.Key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, key)
}

// Depth returns the current FIFO length.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fifo.Len()
}
