package parmap

import (
	"runtime"
	"time"
)

// ErrorPolicy determines how a call reacts to element failures.
type ErrorPolicy int

const (
	// Deferred runs every chunk to completion and reports all failures
	// at the end as a single [*AggregateError] keyed by element index.
	Deferred ErrorPolicy = iota

	// FailFast cancels chunks not yet dispatched when the first failure
	// is observed and returns that failure. Chunks already executing
	// run to completion; cancellation is at chunk granularity only.
	FailFast
)

// ChunkStrategy determines how input indices are partitioned.
type ChunkStrategy int

const (
	// EvenChunks divides indices as evenly as possible across chunks.
	EvenChunks ChunkStrategy = iota

	// WeightedChunks balances cumulative element weight across chunks.
	// Requires [WithWeights]; without weights it falls back to EvenChunks.
	WeightedChunks
)

type config struct {
	workers         int
	chunksPerWorker int
	policy          ErrorPolicy
	strategy        ChunkStrategy
	weights         []float64
	seed            uint64
	seeded          bool
	timeout         time.Duration
	onProgress      func(done, total int)
	progressEvery   time.Duration
	onSignal        func(Signal)
	substrate       Substrate
}

// Option configures a single map call.
type Option func(*config)

func defaultConfig() config {
	return config{
		workers:         runtime.GOMAXPROCS(0),
		chunksPerWorker: 1,
		policy:          Deferred,
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithWorkers sets the worker pool size. The default is the available
// parallelism. WithWorkers panics if n <= 0.
func WithWorkers(n int) Option {
	if n <= 0 {
		panic("parmap: WithWorkers requires n > 0")
	}
	return func(c *config) {
		c.workers = n
	}
}

// WithChunksPerWorker sets how many chunks are planned per worker.
// The default of 1 bounds per-worker overhead to one dispatch
// round-trip; higher values produce finer-grained chunks, which spreads
// uneven workloads and tightens fail-fast and deadline granularity.
// WithChunksPerWorker panics if k <= 0.
func WithChunksPerWorker(k int) Option {
	if k <= 0 {
		panic("parmap: WithChunksPerWorker requires k > 0")
	}
	return func(c *config) {
		c.chunksPerWorker = k
	}
}

// WithPolicy sets the error handling policy for the call.
// It panics if p is not a known ErrorPolicy value.
func WithPolicy(p ErrorPolicy) Option {
	switch p {
	case Deferred, FailFast:
	default:
		panic("parmap: invalid error policy")
	}
	return func(c *config) {
		c.policy = p
	}
}

// WithChunkStrategy sets the chunk partitioning strategy.
// It panics if s is not a known ChunkStrategy value.
func WithChunkStrategy(s ChunkStrategy) Option {
	switch s {
	case EvenChunks, WeightedChunks:
	default:
		panic("parmap: invalid chunk strategy")
	}
	return func(c *config) {
		c.strategy = s
	}
}

// WithWeights supplies a per-element cost hint and switches the call to
// [WeightedChunks]. The weights slice must be as long as the input; a
// mismatch fails the call with [*LengthMismatchError] before any
// dispatch. WithWeights panics if any weight is negative.
func WithWeights(w []float64) Option {
	for _, x := range w {
		if x < 0 {
			panic("parmap: WithWeights requires non-negative weights")
		}
	}
	return func(c *config) {
		c.weights = w
		c.strategy = WeightedChunks
	}
}

// WithSeed enables reproducible per-chunk sub-seeds derived from base.
// The evaluation function reads its chunk's seed via [ChunkSeed].
func WithSeed(base uint64) Option {
	return func(c *config) {
		c.seed = base
		c.seeded = true
	}
}

// WithTimeout sets a per-call deadline checked at chunk-dispatch
// boundaries. Chunks in flight when the deadline expires finish; chunks
// not yet dispatched fail their indices with [ErrCancelled].
// WithTimeout panics if d <= 0.
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("parmap: WithTimeout requires d > 0")
	}
	return func(c *config) {
		c.timeout = d
	}
}

// WithProgress registers a callback invoked as chunks complete, with the
// number of elements done so far and the call total. The callback runs
// under the coordinator's bookkeeping lock; keep it cheap. A final call
// with done == total is always delivered. Panics if fn is nil.
func WithProgress(fn func(done, total int)) Option {
	if fn == nil {
		panic("parmap: WithProgress requires non-nil callback")
	}
	return func(c *config) {
		c.onProgress = fn
	}
}

// WithProgressInterval throttles the progress callback to at most one
// invocation per interval (the completion call is exempt).
// Panics if d <= 0.
func WithProgressInterval(d time.Duration) Option {
	if d <= 0 {
		panic("parmap: WithProgressInterval requires d > 0")
	}
	return func(c *config) {
		c.progressEvery = d
	}
}

// WithOnSignal registers a hook that receives advisory signals raised
// via [Raise], replayed in element-index order after every chunk has
// reported. Panics if fn is nil.
func WithOnSignal(fn func(Signal)) Option {
	if fn == nil {
		panic("parmap: WithOnSignal requires non-nil hook")
	}
	return func(c *config) {
		c.onSignal = fn
	}
}

// WithSubstrate runs the call on the given worker substrate instead of
// a per-call [WorkerPool]. The caller owns the substrate's lifecycle.
// Panics if s is nil.
func WithSubstrate(s Substrate) Option {
	if s == nil {
		panic("parmap: WithSubstrate requires non-nil substrate")
	}
	return func(c *config) {
		c.substrate = s
	}
}
