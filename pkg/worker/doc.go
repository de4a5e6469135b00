// Package worker provides a generic bounded worker pool for concurrent
// batch processing, such as validating many citation batches at once.
//
// # Overview
//
// A Pool runs a fixed number of workers that consume items of any type T
// from a bounded queue and hand them to a single Handler function. The
// queue never grows: when it is full, Submit drops the item and returns
// ErrQueueFull immediately, so overload surfaces as an error the caller
// can count, retry, or report instead of as unbounded memory growth.
//
// # Usage
//
//	type batchJob struct {
//		Line      int
//		Citations []string
//	}
//
//	pool, err := worker.NewPool[batchJob](4, 256,
//		func(ctx context.Context, job batchJob) error {
//			_, err := registry.ValidateAll(ctx, job.Citations)
//			return err
//		},
//	)
//	if err != nil {
//		return err
//	}
//
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//
//	for scanner.Scan() {
//		if err := pool.Submit(parseJob(scanner.Text())); err != nil {
//			// ErrQueueFull is transient; back off and resubmit,
//			// or count the drop and move on.
//		}
//	}
//
//	if err := pool.Stop(30 * time.Second); err != nil {
//		// ErrDrainTimeout: workers still busy, stats show what remained
//	}
//
// # Lifecycle
//
// A pool moves through created, started, and stopped states exactly once.
// Start launches the workers under a caller-supplied context; cancelling
// that context makes workers exit immediately and abandon whatever is
// still queued. Stop is the graceful path: it closes the queue, lets
// workers drain the remaining items, and waits up to the given timeout.
// A pool that timed out during Stop still counts as stopped and rejects
// further Submit calls with ErrShuttingDown.
//
// Sentinel errors come from the citevet errors package: ErrNotStarted,
// ErrAlreadyStarted, ErrAlreadyStopped, ErrShuttingDown, ErrQueueFull,
// and ErrDrainTimeout. ErrQueueFull and ErrDrainTimeout classify as
// transient, so retry helpers treat them as retryable.
//
// # Observability
//
// Counters (submitted, processed, failed, dropped) are always tracked
// with atomics and exposed via Stats, which is cheap enough to call in a
// loop. Prometheus export is optional:
//
//	pool, err := worker.NewPool[batchJob](4, 256, handler,
//		worker.WithMetrics[batchJob](registry, "batch_validation"),
//	)
//
// This registers queue depth and utilization gauges, the four counters,
// and a per-item duration histogram labelled by status, all under the
// citevet_worker namespace with the prefix as a component label. Queue
// gauges refresh once per second while the pool runs.
//
// # Limitations
//
// Worker count is fixed at creation; there is no priority ordering and
// no per-item cancellation. Items are processed in FIFO order, and any
// per-item timeout belongs inside the Handler using the context it
// receives.
package worker
