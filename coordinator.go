package parmap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// evalFunc evaluates one element by its position within the call and
// returns its value or failure. Positions equal element indices except
// for selection-gated calls, where remap translates between them.
type evalFunc func(ctx context.Context, pos int) (any, error)

// run is the dispatch coordinator: it partitions [0, n) into chunks,
// submits them to the worker substrate with at most cfg.workers in
// flight, and collects per-element outcomes into a result buffer.
//
// Elements within a chunk run sequentially on one worker. Final output
// order is restored by index, never by forcing in-order completion.
// Fail-fast aborts, external cancellation, and the per-call deadline
// are all observed at chunk-dispatch boundaries only; a chunk already
// executing runs to completion.
//
// The returned error is the first attributed failure under [FailFast],
// or the parent context's error on external cancellation. Under
// [Deferred] the buffer carries all failures and the error is nil.
func run(ctx context.Context, cfg config, n int, remap []int, eval evalFunc) (*resultBuffer, error) {
	buf := newResultBuffer(n)
	if n == 0 {
		return buf, nil
	}

	orig := func(pos int) int {
		if remap == nil {
			return pos
		}
		return remap[pos]
	}

	// Alignment problems are fatal before any dispatch.
	if cfg.strategy == WeightedChunks && cfg.weights != nil && len(cfg.weights) != n {
		return nil, &LengthMismatchError{Arg: -1, Want: n, Got: len(cfg.weights)}
	}

	chunks := planChunks(n, cfg)

	sub := cfg.substrate
	if sub == nil {
		pool := NewWorkerPool(cfg.workers)
		defer pool.Close()
		sub = pool
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var deadline time.Time
	if cfg.timeout > 0 {
		deadline = time.Now().Add(cfg.timeout)
	}

	var limiter *rate.Limiter
	if cfg.onProgress != nil && cfg.progressEvery > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.progressEvery), 1)
	}

	sink := &signalSink{}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		done     int
		firstErr atomic.Pointer[ElementError]
		failOnce sync.Once
	)

	// fail records the first attributed failure and, under FailFast,
	// cancels chunks not yet dispatched.
	fail := func(e *ElementError) {
		if cfg.policy != FailFast {
			return
		}
		failOnce.Do(func() {
			firstErr.Store(e)
			cancel(e)
		})
	}

	// chunkDone runs completion bookkeeping. The outstanding count and
	// progress cadence are the single point of shared mutation, so mu
	// serializes them.
	chunkDone := func(c chunk) {
		mu.Lock()
		done += c.size()
		if cfg.onProgress != nil && (done == n || limiter == nil || limiter.Allow()) {
			cfg.onProgress(done, n)
		}
		mu.Unlock()
	}

	sem := semaphore.NewWeighted(int64(cfg.workers))

	next := 0
	for next < len(chunks) {
		c := chunks[next]

		// Dispatch-boundary checks.
		if runCtx.Err() != nil {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		// The deadline may have expired while waiting for a slot.
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			sem.Release(1)
			break
		}

		chunkCtx := runCtx
		if cfg.seeded {
			chunkCtx = withChunkSeed(chunkCtx, deriveSeed(cfg.seed, c.id))
		}
		rec := &signalRecorder{sink: sink}
		chunkCtx = withSignalRecorder(chunkCtx, rec)

		task := func() {
			for pos := c.start; pos < c.end; pos++ {
				oi := orig(pos)
				rec.index = oi
				v, err := safeEval(chunkCtx, eval, pos)
				if err != nil {
					buf.putFailure(pos, oi, err)
					fail(&ElementError{Index: oi, Err: err})
				} else {
					buf.putValue(pos, oi, v)
				}
			}
		}

		h, err := sub.Submit(task)
		if err != nil {
			// The substrate refused the chunk; every index it covered
			// fails with the same fault.
			for pos := c.start; pos < c.end; pos++ {
				wf := &WorkerFaultError{Chunk: c.id, Err: err}
				buf.putFailure(pos, orig(pos), wf)
				fail(&ElementError{Index: orig(pos), Err: wf})
			}
			sem.Release(1)
			chunkDone(c)
			next++
			continue
		}
		next++

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			out := h.Await()
			if out.Kind == OutcomeCrashed {
				// The worker died partway through the chunk; fail the
				// indices it never reached. Dispatch continues on the
				// surviving workers.
				for pos := c.start; pos < c.end; pos++ {
					if buf.empty(pos) {
						wf := &WorkerFaultError{Chunk: c.id, Err: out.Err}
						buf.putFailure(pos, orig(pos), wf)
						fail(&ElementError{Index: orig(pos), Err: wf})
					}
				}
			}
			chunkDone(c)
		}()
	}

	// Chunks never dispatched fail their indices as cancelled.
	for _, c := range chunks[next:] {
		for pos := c.start; pos < c.end; pos++ {
			buf.putFailure(pos, orig(pos), ErrCancelled)
		}
		chunkDone(c)
	}

	wg.Wait()

	sink.replay(cfg.onSignal)

	if e := firstErr.Load(); e != nil {
		return buf, e
	}
	if err := ctx.Err(); err != nil {
		return buf, err
	}
	return buf, nil
}

// safeEval runs eval with panic recovery so a panicking element fails
// only itself, not its chunk.
func safeEval(ctx context.Context, eval evalFunc, pos int) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return eval(ctx, pos)
}
