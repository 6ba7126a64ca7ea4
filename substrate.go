package parmap

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned by [WorkerPool.Submit] when the pool has
// been closed.
var ErrPoolClosed = errors.New("parmap: worker pool is closed")

// OutcomeKind classifies how a submitted task ended.
type OutcomeKind int

const (
	// OutcomeCompleted means the task function ran to completion.
	OutcomeCompleted OutcomeKind = iota

	// OutcomeCrashed means the worker executing the task crashed or
	// disconnected; the task may have stopped partway through.
	OutcomeCrashed
)

// Outcome reports the terminal state of a submitted task. Err is set
// only for OutcomeCrashed.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Handle tracks one submitted task.
type Handle interface {
	// Await blocks until the task reaches a terminal state.
	Await() Outcome
}

// Substrate abstracts the worker pool that executes chunks: a fixed set
// of workers behind Submit/Await, with crashes reported as a
// distinguishable [Outcome] rather than lost. Implementations must
// support at least as many outstanding tasks as the call's worker count.
//
// The default substrate is [WorkerPool]. Custom substrates can back
// workers with subprocesses or remote nodes; the engine only requires
// that a submitted task eventually reaches a terminal outcome.
type Substrate interface {
	Submit(task func()) (Handle, error)
	Close() error
}

// WorkerPool is the default [Substrate]: a reusable fixed-size pool of
// worker goroutines. Tasks are submitted via Submit and processed by n
// workers until [WorkerPool.Close] drains the queue.
//
// A WorkerPool shared across calls via [WithSubstrate] acts as an
// explicit engine instance with clear construction and teardown.
type WorkerPool struct {
	tasks  chan *poolTask
	wg     sync.WaitGroup
	closed atomic.Bool

	// Observability counters.
	submitted atomic.Int64
	completed atomic.Int64
	crashed   atomic.Int64
	inFlight  atomic.Int64
	workers   int
}

// PoolStats provides a point-in-time snapshot of pool activity.
type PoolStats struct {
	Submitted  int64 // total tasks submitted
	Completed  int64 // tasks that reached a terminal outcome
	Crashed    int64 // tasks whose worker crashed
	InFlight   int64 // tasks currently executing
	QueueDepth int   // tasks waiting in the queue
	Workers    int   // worker count (fixed at creation)
}

// PoolOption configures a [WorkerPool].
type PoolOption func(*poolConfig)

type poolConfig struct {
	queueSize int
}

// WithQueueSize sets the task queue buffer size. Default is n * 2.
func WithQueueSize(size int) PoolOption {
	return func(c *poolConfig) {
		if size < 0 {
			panic("parmap: WithQueueSize requires non-negative size")
		}
		c.queueSize = size
	}
}

// NewWorkerPool creates a pool with n worker goroutines.
// Workers start immediately and process tasks until [WorkerPool.Close]
// is called. Panics if n <= 0.
func NewWorkerPool(n int, opts ...PoolOption) *WorkerPool {
	if n <= 0 {
		panic("parmap: NewWorkerPool requires n > 0")
	}

	cfg := poolConfig{queueSize: n * 2}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &WorkerPool{
		tasks:   make(chan *poolTask, cfg.queueSize),
		workers: n,
	}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}

	return p
}

type poolTask struct {
	fn   func()
	done chan struct{}
	out  Outcome
}

// Await implements [Handle].
func (t *poolTask) Await() Outcome {
	<-t.done
	return t.out
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.runTask(t)
	}
}

func (p *WorkerPool) runTask(t *poolTask) {
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.completed.Add(1)
		close(t.done)
	}()
	defer func() {
		if r := recover(); r != nil {
			p.crashed.Add(1)
			t.out = Outcome{Kind: OutcomeCrashed, Err: newPanicError(r)}
		}
	}()

	t.fn()
	t.out = Outcome{Kind: OutcomeCompleted}
}

// Submit submits a task to the pool. It blocks if the queue is full.
// Returns [ErrPoolClosed] if the pool has been closed.
func (p *WorkerPool) Submit(fn func()) (h Handle, err error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	// Guard against the race between the closed check above and
	// Close() closing the tasks channel. If Close fires between the
	// check and the send, the send panics; we recover and return
	// ErrPoolClosed.
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, ErrPoolClosed
		}
	}()

	t := &poolTask{fn: fn, done: make(chan struct{})}
	p.tasks <- t
	p.submitted.Add(1)
	return t, nil
}

// Close stops accepting new tasks and waits for in-flight tasks to
// finish. Safe to call multiple times.
func (p *WorkerPool) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		close(p.tasks)
	}
	p.wg.Wait()
	return nil
}

// Stats returns a point-in-time snapshot of pool activity.
// Safe to call concurrently.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Crashed:    p.crashed.Load(),
		InFlight:   p.inFlight.Load(),
		QueueDepth: len(p.tasks),
		Workers:    p.workers,
	}
}
