package threadpool_test

import (
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tp "github.com/azargarov/tpool"
)

func newBenchPool(workers int) *tp.ThreadPool {
	return tp.NewWithOptions(workers, tp.Options{QueueCapacity: 4096})
}

//
// 1) Submit-path throughput: fixed number of jobs, variable submitters
//

// runSubmitters pushes exactly jobsToRun jobs into the pool using
// `submitters` goroutines.
func runSubmitters(pool *tp.ThreadPool, submitters, jobsToRun int) {
	var wg sync.WaitGroup
	wg.Add(submitters)

	perSubmitter := jobsToRun / submitters

	for range submitters {
		go func() {
			defer wg.Done()
			for range perSubmitter {
				pool.Execute(func() {})
			}
		}()
	}

	wg.Wait()
}

// BenchmarkSubmitPath measures how fast the pool can ingest jobs under
// different numbers of concurrent submitters. Execute() + queue push
// performance.
func BenchmarkSubmitPath(b *testing.B) {
	const jobsToRun = 1_000_000
	submitterCounts := []int{1, 2, 8, 64}

	for _, submitters := range submitterCounts {
		name := fmt.Sprintf("%d_submitters", submitters)
		b.Run(name, func(b *testing.B) {
			pool := newBenchPool(runtime.NumCPU())
			defer pool.Stop()

			b.ReportAllocs()
			b.ResetTimer()

			start := time.Now()
			runSubmitters(pool, submitters, jobsToRun)
			elapsed := time.Since(start)

			b.StopTimer()

			mps := float64(jobsToRun) / elapsed.Seconds() / 1e6
			b.ReportMetric(mps, "Mjobs/sec")
			b.Logf("submitters=%d → %.2f Mjobs/sec in %.2fs",
				submitters, mps, elapsed.Seconds())
		})
	}
}

//
// 2) End-to-end throughput: submit → queue → worker → execute → done
//

// BenchmarkEndToEndThroughput measures how many jobs per second can be
// fully processed end-to-end. This includes worker scheduling and
// execution.
func BenchmarkEndToEndThroughput(b *testing.B) {
	const jobsToRun = 500_000

	for _, w := range workloads {
		b.Run(w.name, func(b *testing.B) {
			pool := newBenchPool(runtime.GOMAXPROCS(0))
			defer pool.Stop()

			var done atomic.Int64

			b.ReportAllocs()
			b.ResetTimer()
			start := time.Now()

			for range jobsToRun {
				pool.Execute(func() {
					w.fn()
					done.Add(1)
				})
			}

			// wait until workers finish
			waitUntilB(b, time.Minute, func() bool {
				return done.Load() == int64(jobsToRun)
			})

			elapsed := time.Since(start)
			b.StopTimer()

			mps := float64(jobsToRun) / elapsed.Seconds() / 1e6
			b.ReportMetric(mps, "Mjobs/sec")
			b.Logf("workload=%s end-to-end → %.2f Mjobs/sec in %.2fs",
				w.name, mps, elapsed.Seconds())
		})
	}
}

//
// 3) Simple latency stats helper
//

type latencyStats struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (ls *latencyStats) record(d time.Duration) {
	ls.mu.Lock()
	ls.samples = append(ls.samples, d)
	ls.mu.Unlock()
}

func (ls *latencyStats) summary() (min, max, p50, p95, p99 time.Duration) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if len(ls.samples) == 0 {
		return 0, 0, 0, 0, 0
	}

	s := make([]time.Duration, len(ls.samples))
	copy(s, ls.samples)
	slices.Sort(s)

	min = s[0]
	max = s[len(s)-1]

	get := func(p float64) time.Duration {
		if len(s) == 1 {
			return s[0]
		}
		idx := int(math.Round(p * float64(len(s)-1))) // 0..1 → index
		if idx < 0 {
			idx = 0
		}
		if idx >= len(s) {
			idx = len(s) - 1
		}
		return s[idx]
	}

	p50 = get(0.50)
	p95 = get(0.95)
	p99 = get(0.99)
	return
}

//
// 4) End-to-end latency with workers
//

// BenchmarkEndToEndLatency measures latency from Execute() until the
// job actually runs (as seen by the worker).
func BenchmarkEndToEndLatency(b *testing.B) {
	const totalOps = 200_000

	pool := newBenchPool(runtime.NumCPU())
	defer pool.Stop()

	var ls latencyStats
	var inFlight sync.WaitGroup

	b.ReportAllocs()
	b.ResetTimer()

	inFlight.Add(totalOps)

	// single submitter to avoid too much noise
	for range totalOps {
		sent := time.Now()
		pool.Execute(func() {
			ls.record(time.Since(sent))
			inFlight.Done()
		})
	}

	inFlight.Wait()
	b.StopTimer()

	min, max, p50, p95, p99 := ls.summary()
	b.Logf("end-to-end latency: min=%v p50=%v p95=%v p99=%v max=%v",
		min, p50, p95, p99, max)
}

//
// 5) Baseline
//

// BenchmarkRawChan is the reference point: a buffered channel drained
// by one goroutine, no pool around it.
func BenchmarkRawChan(b *testing.B) {
	ch := make(chan struct{}, 1024)
	go func() {
		for range ch {
		}
	}()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch <- struct{}{}
	}
}
