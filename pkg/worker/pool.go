// Package worker provides a generic bounded worker pool for concurrent
// batch processing.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citevet/citevet/errors"
	"github.com/citevet/citevet/metric"
)

// Default pool sizing used when NewPool receives non-positive values.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// gaugeInterval is how often queue depth and utilization gauges refresh.
const gaugeInterval = time.Second

// Handler processes a single queued item. A non-nil return counts the item
// as failed; the pool keeps running either way.
type Handler[T any] func(ctx context.Context, item T) error

// Pool is a fixed-size worker pool with a bounded queue. Submit never
// blocks: when the queue is full the item is dropped and ErrQueueFull
// returned, so a slow consumer shows up in the caller's error handling
// instead of stalling it.
type Pool[T any] struct {
	workers   int
	queueSize int
	handler   Handler[T]

	jobs chan T
	quit chan struct{}
	wg   sync.WaitGroup

	// mu orders lifecycle transitions and Submit against the close of jobs.
	mu       sync.Mutex
	started  bool
	stopping bool

	// Atomic counters
	submitted int64
	processed int64
	failed    int64
	dropped   int64

	metrics *poolMetrics

	registry *metric.MetricsRegistry
	prefix   string
}

// Option configures a Pool using the functional options pattern.
type Option[T any] func(*Pool[T])

// WithMetrics enables Prometheus metrics export for pool activity.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		if registry != nil && prefix != "" {
			p.registry = registry
			p.prefix = prefix
		}
	}
}

// NewPool creates a worker pool that runs handler on submitted items.
// Non-positive workers or queueSize fall back to the package defaults.
func NewPool[T any](workers, queueSize int, handler Handler[T], options ...Option[T]) (*Pool[T], error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if handler == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"WorkerPool", "NewPool", "handler function required")
	}

	pool := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		handler:   handler,
		jobs:      make(chan T, queueSize),
		quit:      make(chan struct{}),
	}

	for _, opt := range options {
		if opt != nil {
			opt(pool)
		}
	}

	if pool.registry != nil {
		metrics, err := newPoolMetrics(pool.registry, pool.prefix)
		if err != nil {
			return nil, errors.Wrap(err, "WorkerPool", "NewPool", "metric registration")
		}
		pool.metrics = metrics
	}

	return pool, nil
}

// Start launches the workers. The context bounds all processing: when it
// is cancelled, workers exit immediately and queued items are abandoned.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.ErrAlreadyStarted
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}

	if p.metrics != nil {
		p.wg.Add(1)
		go p.observeQueue(ctx)
	}

	p.started = true
	return nil
}

// Submit queues an item for processing without blocking. It returns
// ErrQueueFull when the queue is at capacity and the item was dropped.
func (p *Pool[T]) Submit(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return errors.ErrNotStarted
	}
	if p.stopping {
		return errors.ErrShuttingDown
	}

	select {
	case p.jobs <- item:
		atomic.AddInt64(&p.submitted, 1)
		if p.metrics != nil {
			p.metrics.recordSubmitted(len(p.jobs))
		}
		return nil
	default:
		atomic.AddInt64(&p.dropped, 1)
		if p.metrics != nil {
			p.metrics.recordDropped()
		}
		return errors.ErrQueueFull
	}
}

// Stop drains the queue and waits up to timeout for workers to finish.
// Items submitted before Stop are still processed unless the Start
// context is cancelled first. Returns ErrDrainTimeout if workers are
// still busy when the timeout expires; the pool counts as stopped
// either way and rejects further submissions.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return errors.ErrNotStarted
	}
	if p.stopping {
		return errors.ErrAlreadyStopped
	}
	p.stopping = true

	close(p.jobs)
	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.ErrDrainTimeout
	}
}

// Stats returns a snapshot of pool counters.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.jobs),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
		Dropped:    atomic.LoadInt64(&p.dropped),
	}
}

// PoolStats is a point-in-time snapshot of pool activity. Processed
// counts every completed attempt; Failed is the subset whose handler
// returned an error.
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

// work consumes items until the queue is closed and drained or the
// context is cancelled.
func (p *Pool[T]) work(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.jobs:
			if !ok {
				return
			}

			start := time.Now()
			err := p.handler(ctx, item)
			elapsed := time.Since(start)

			atomic.AddInt64(&p.processed, 1)
			status := "success"
			if err != nil {
				atomic.AddInt64(&p.failed, 1)
				status = "error"
			}
			if p.metrics != nil {
				p.metrics.recordJob(status, elapsed)
			}
		}
	}
}

// observeQueue refreshes the queue depth and utilization gauges until the
// pool stops. It watches quit as well as ctx so that Stop terminates it
// even when the Start context is never cancelled.
func (p *Pool[T]) observeQueue(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-ticker.C:
			p.metrics.updateQueue(len(p.jobs), p.queueSize)
		}
	}
}
