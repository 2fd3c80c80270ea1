// Package threadpool provides a fixed-size pool of workers for running
// independent, one-shot jobs.
//
// Design goals
//
// The package is designed around the following principles:
//
//   - A caller-chosen number of workers, spawned once and reused
//   - Strict FIFO dispatch from a single shared queue
//   - Submission that never blocks or rejects work for being busy
//   - Graceful shutdown: drain everything queued, then join workers
//     one by one in id order
//
// Rather than spawning a goroutine per task, threadpool bounds
// concurrency to the size chosen at construction time. The pool is a
// good fit when each job owns a scarce resource (a connection, a file
// handle, a slot against a rate limit) and unbounded goroutine growth
// is exactly what must be avoided.
//
// Architecture overview
//
// The pool is composed of three small pieces:
//
//   1. Queue (jobQueue)
//      An unbounded FIFO ring buffer guarded by one mutex and a
//      condition variable. Dequeue is the only critical section:
//      a worker holds the lock just long enough to take one job.
//
//   2. Workers
//      Each worker loops dequeue-run until the queue reports closed
//      and drained, then exits. A worker runs one job at a time.
//
//   3. Jobs
//      A Job is a plain func(). It carries its own state in the
//      closure; the pool never inspects it.
//
// Shutdown semantics
//
// Stop closes the queue and nothing else: closing is the only signal
// the workers receive. Jobs already buffered keep flowing to workers
// after the close; only new submissions are refused. Stop returns once
// the last worker has been joined, so callers can safely tear down
// whatever the jobs were using.
//
// Error handling
//
// Jobs have no error return. A panic inside a job is recovered, logged
// with the worker id and stack, and counted; the worker survives.
// Losing a worker to a panic would silently shrink the pool for the
// rest of its lifetime, which breaks the fixed-size contract.
//
// Submission after shutdown and a nil job are programmer errors and
// panic, in the same spirit as sending on a closed channel. TryExecute
// is the non-panicking variant for producers that race shutdown.
//
// Metrics
//
// Pool activity is reported through the MetricsPolicy interface.
// AtomicMetrics offers lock-free in-process counters, NoopMetrics (the
// default) discards everything, and PrometheusMetrics publishes the
// same events as Prometheus collectors.
//
// CPU pinning
//
// On Linux, workers may optionally be pinned to CPUs. When enabled,
// each worker is locked to an OS thread and restricted to the core
// matching its id. This can help cache-sensitive workloads and is off
// by default.
package threadpool
