package threadpool

import (
	"go.uber.org/zap"
)

const defaultQueueCapacity = 64

// Options configure a ThreadPool beyond its worker count.
//
// The worker count is a required constructor argument, not an option:
// a pool without an explicit size is a configuration bug, so there is
// no default to hide it. All zero values here are replaced with
// sensible defaults in FillDefaults.
type Options struct {
	// QueueCapacity is the initial capacity of the job queue. The
	// queue grows without bound; this only sizes the first
	// allocation.
	QueueCapacity int

	// Logger receives worker and pool lifecycle events.
	// Defaults to zap.NewNop.
	Logger *zap.Logger

	// Metrics receives queueing and execution events.
	// Defaults to NoopMetrics.
	Metrics MetricsPolicy

	// OnJobPanic, when set, is called with the recovered value after
	// a job panics. The pool has already logged the panic and kept
	// the worker alive by the time the hook runs. The hook must not
	// panic.
	OnJobPanic func(recovered any)

	// PinWorkers locks every worker goroutine to an OS thread and,
	// on Linux, pins it to the CPU matching its id. Pinning failures
	// are logged and otherwise ignored.
	PinWorkers bool
}

// FillDefaults replaces zero values with defaults.
func (o *Options) FillDefaults() {
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = defaultQueueCapacity
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
}
