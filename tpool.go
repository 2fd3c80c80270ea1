package threadpool

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Job is a self-contained unit of work. A Job carries its own state in
// the closure; the pool never inspects it. Every submitted Job runs
// exactly once, on exactly one worker.
type Job func()

// ThreadPool runs jobs on a fixed set of workers spawned at
// construction time.
//
// Jobs are dispatched in FIFO order from one shared queue to whichever
// worker becomes free first. The queue is unbounded, so Execute never
// blocks the caller. The worker count never changes after New; there
// is no resizing, pausing, or queue introspection.
type ThreadPool struct {
	queue   *jobQueue
	workers []*worker
	opts    Options
	log     *zap.Logger
	metrics MetricsPolicy

	started  sync.WaitGroup // released once every worker is live
	stopOnce sync.Once
}

// worker drains the shared queue until it is closed and empty.
// done is closed when the worker goroutine exits; Stop joins on it.
type worker struct {
	id   int
	done chan struct{}
}

// New creates a pool with size workers, all live before New returns.
//
// It panics if size is less than one: a pool that can never run
// anything is a programmer error, and callers are expected to validate
// configured sizes before constructing the pool.
func New(size int) *ThreadPool {
	return NewWithOptions(size, Options{})
}

// NewWithOptions is New with explicit Options.
func NewWithOptions(size int, opts Options) *ThreadPool {
	if size < 1 {
		panic("threadpool: size must be at least 1")
	}
	opts.FillDefaults()

	p := &ThreadPool{
		queue:   newJobQueue(opts.QueueCapacity),
		workers: make([]*worker, 0, size),
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	p.started.Add(size)
	for id := 0; id < size; id++ {
		w := &worker{id: id, done: make(chan struct{})}
		p.workers = append(p.workers, w)
		go p.runWorker(w)
	}
	p.started.Wait()
	p.log.Info("thread pool started", zap.Int("workers", size))
	return p
}

// Execute queues a job for the next free worker. It never blocks
// beyond the brief queue mutex and never rejects work for being busy:
// the queue grows instead.
//
// Execute panics if job is nil or if the pool has been stopped. Both
// are programmer errors, in the same spirit as sending on a closed
// channel. Producers that race shutdown should use TryExecute.
func (p *ThreadPool) Execute(job Job) {
	if job == nil {
		panic("threadpool: nil job")
	}
	// gauge before push: a worker can pop the job before push returns
	p.metrics.IncQueued()
	if !p.queue.push(job) {
		p.metrics.DecQueued()
		panic("threadpool: Execute on stopped pool")
	}
}

// TryExecute queues a job like Execute but reports false instead of
// panicking when the pool has been stopped. It still panics on a nil
// job.
func (p *ThreadPool) TryExecute(job Job) bool {
	if job == nil {
		panic("threadpool: nil job")
	}
	p.metrics.IncQueued()
	if !p.queue.push(job) {
		p.metrics.DecQueued()
		return false
	}
	return true
}

// Stop shuts the pool down gracefully. Closing the queue is the only
// signal the workers get: no further submissions are accepted, every
// job already queued still runs, and the workers are then joined one
// by one in id order.
//
// Stop blocks until the last job has finished. It is safe to call
// repeatedly and from multiple goroutines; every call returns only
// after the teardown has completed. Calling Stop from inside a job
// deadlocks, as the worker would be waiting on itself.
func (p *ThreadPool) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info("thread pool shutting down", zap.Int("workers", len(p.workers)))
		p.queue.close()
		for _, w := range p.workers {
			<-w.done
			p.log.Info("worker stopped", zap.Int("worker", w.id))
		}
		p.log.Info("thread pool stopped")
	})
}

// Shutdown is Stop bounded by a context. It returns nil once the pool
// has drained, or ctx.Err() if the context expires first. On timeout
// the drain keeps running in the background; a later Shutdown or Stop
// call waits for the same teardown.
func (p *ThreadPool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Stop()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NumWorkers returns the fixed worker count chosen at construction.
func (p *ThreadPool) NumWorkers() int { return len(p.workers) }

// runWorker is the body of one worker goroutine. It signals readiness
// once it is pinned and about to enter the loop, then drains the queue
// until close.
func (p *ThreadPool) runWorker(w *worker) {
	defer close(w.done)

	if p.opts.PinWorkers {
		runtime.LockOSThread()
		if err := PinToCPU(w.id % runtime.NumCPU()); err != nil {
			p.log.Warn("worker: cpu pinning failed",
				zap.Int("worker", w.id), zap.Error(err))
		}
	}
	p.started.Done()

	for {
		job, ok := p.queue.pop()
		if !ok {
			p.log.Debug("worker: queue closed; shutting down", zap.Int("worker", w.id))
			return
		}
		p.metrics.DecQueued()
		p.log.Debug("worker: got a job; executing", zap.Int("worker", w.id))
		p.runJob(w.id, job)
	}
}

// runJob executes one job, recovering a panic so the worker survives.
// A panicking job still counts as executed; losing the worker would
// shrink the pool for the rest of its lifetime.
func (p *ThreadPool) runJob(id int, job Job) {
	defer func() {
		p.metrics.IncExecuted()
		if r := recover(); r != nil {
			p.metrics.IncPanicked()
			p.log.Error("worker: job panicked",
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.Stack("stack"))
			if p.opts.OnJobPanic != nil {
				p.opts.OnJobPanic(r)
			}
		}
	}()
	job()
}
