package threadpool

import (
	"sync/atomic"
)

// MetricsPolicy defines hooks used by the pool to report queueing and
// execution activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {

	// IncQueued increments the queued jobs gauge.
	IncQueued()

	// DecQueued decrements the queued jobs gauge when a worker takes
	// a job off the queue.
	DecQueued()

	// IncExecuted increments the executed jobs counter. Jobs that
	// panic still count as executed.
	IncExecuted()

	// IncPanicked increments the panicked jobs counter.
	IncPanicked()
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	// queued is the current number of jobs waiting in the queue.
	queued atomic.Int64

	_ [56]byte // padding to avoid false sharing

	// executed is the total number of jobs run.
	executed atomic.Uint64

	_ [56]byte // padding to avoid false sharing

	// panicked is the total number of jobs that panicked.
	panicked atomic.Uint64
}

// Queued returns the current number of queued jobs.
// Intended for cold-path observation.
func (m *AtomicMetrics) Queued() int64 {
	return m.queued.Load()
}

// Executed returns the total number of executed jobs.
// Intended for cold-path observation.
func (m *AtomicMetrics) Executed() uint64 {
	return m.executed.Load()
}

// Panicked returns the total number of panicked jobs.
// Intended for cold-path observation.
func (m *AtomicMetrics) Panicked() uint64 {
	return m.panicked.Load()
}

// IncQueued increments the queued jobs gauge by one.
func (m *AtomicMetrics) IncQueued() {
	m.queued.Add(1)
}

// DecQueued decrements the queued jobs gauge by one.
func (m *AtomicMetrics) DecQueued() {
	m.queued.Add(-1)
}

// IncExecuted increments the executed jobs counter by one.
func (m *AtomicMetrics) IncExecuted() {
	m.executed.Add(1)
}

// IncPanicked increments the panicked jobs counter by one.
func (m *AtomicMetrics) IncPanicked() {
	m.panicked.Add(1)
}

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
//
// It can be used when metrics collection is disabled and
// zero overhead is desired. It is the default.
type NoopMetrics struct{}

func (m *NoopMetrics) IncQueued()   {}
func (m *NoopMetrics) DecQueued()   {}
func (m *NoopMetrics) IncExecuted() {}
func (m *NoopMetrics) IncPanicked() {}
