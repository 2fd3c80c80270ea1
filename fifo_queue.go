package threadpool

import "sync"

// jobQueue is a simple unbounded first-in first-out job queue shared
// by every worker in the pool.
//
// Jobs are processed strictly in the order they are submitted.
// No priorities, no aging, no reordering. The buffer is circular and
// doubles whenever it fills, so push never drops and never blocks.
//
// One mutex guards the whole structure. Dequeue is the only critical
// section in the pool: a worker holds the lock just long enough to
// take one job, then releases it before running anything. Consumers
// waiting on an empty queue park on the condition variable instead of
// polling.
type jobQueue struct {
	mu   sync.Mutex
	wake *sync.Cond // signaled on push, broadcast on close

	buf        []Job // circular buffer
	head, tail int   // read/write indices
	size       int   // number of jobs currently buffered

	closed bool // set once; buffered jobs still drain after close
}

// newJobQueue creates a queue with the given initial capacity.
// The capacity only sizes the first allocation; the queue grows
// without bound.
func newJobQueue(capacity int) *jobQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &jobQueue{buf: make([]Job, capacity)}
	q.wake = sync.NewCond(&q.mu)
	return q
}

// push inserts a job at the tail and wakes one waiting worker.
// It reports false once the queue has been closed.
func (q *jobQueue) push(j Job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[q.tail] = j
	q.tail++
	if q.tail == len(q.buf) {
		q.tail = 0
	}
	q.size++
	q.wake.Signal()
	q.mu.Unlock()
	return true
}

// pop removes and returns the oldest job, blocking while the queue is
// empty and still open.
//
// After close, pop keeps returning buffered jobs until the queue is
// drained, then reports false to every caller.
func (q *jobQueue) pop() (Job, bool) {
	q.mu.Lock()
	for q.size == 0 && !q.closed {
		q.wake.Wait()
	}
	if q.size == 0 {
		q.mu.Unlock()
		return nil, false
	}
	j := q.buf[q.head]
	q.buf[q.head] = nil // drop the reference so the closure can be collected
	q.head++
	if q.head == len(q.buf) {
		q.head = 0
	}
	q.size--
	q.mu.Unlock()
	return j, true
}

// close marks the queue closed and releases every parked worker.
// Idempotent. Buffered jobs remain poppable; only new pushes are
// refused.
func (q *jobQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.wake.Broadcast()
	}
	q.mu.Unlock()
}

// grow doubles the buffer, unwrapping the circular layout so head
// lands back at index zero. Caller must hold q.mu; only called when
// the buffer is full.
func (q *jobQueue) grow() {
	next := make([]Job, 2*len(q.buf))
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.buf = next
	q.head = 0
	q.tail = q.size
}

// len reports the number of jobs currently waiting in the queue.
func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
