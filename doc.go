// Package parmap is a parallel-map execution engine for Go.
//
// It applies a function to every element of one or more aligned slices
// using a bounded pool of workers, and returns results in the original
// input order with the same behavioral contract as a sequential map:
// per-index error attribution, strict output-type coercion, and
// structure-preserving in-place variants.
//
// # Mapping
//
// The primary entry point is [Map], which transforms a slice
// concurrently while preserving order:
//
//	squares, err := parmap.Map(ctx, nums, func(ctx context.Context, n int) (int, error) {
//	    return n * n, nil
//	}, parmap.WithWorkers(4))
//
// [Map2] maps two aligned slices pairwise (length-1 slices broadcast),
// and [MapN] generalizes to any number of aligned sequences. Sequence
// lengths are validated before any dispatch; misaligned inputs fail with
// [*LengthMismatchError] and the function is never called.
//
// [MapIndexed] passes the element's index as an explicit argument.
// [ForEach] runs a function for its side effects only.
//
// # Typed Coercion
//
// [MapFloat64], [MapInt], [MapString], and [MapBool] enforce that every
// produced value fits the target scalar type. A value of the wrong type
// fails that element with [*TypeMismatchError] naming its index; sibling
// elements are unaffected. Nothing is ever silently coerced across type
// families.
//
// # Selective Replacement
//
// [MapAt] transforms only the listed positions and [ModifyIf] only the
// elements matching a predicate; all other positions are returned
// bit-for-bit unchanged. [ModifyAny] additionally enforces that the
// replacement has the same dynamic type as the original element.
//
// # Chunking
//
// Input indices are partitioned into contiguous chunks, one unit of work
// per worker dispatch. The default policy divides indices evenly; pass
// [WithWeights] to balance chunks by per-element cost instead, and
// [WithChunksPerWorker] to produce finer-grained chunks for uneven
// workloads. Elements within a chunk run sequentially on one worker.
//
// # Error Policies
//
// Error policies control how a call reacts to element failures:
//
//   - [Deferred] (default): every chunk runs to completion and all
//     failures are reported at once as an [*AggregateError] keyed by
//     element index.
//   - [FailFast]: the first failure cancels chunks not yet dispatched
//     and is returned immediately, annotated with its index. Chunks
//     already executing run to completion.
//
// Failures are wrapped in [*ElementError] for attribution. Use
// [IsElementError], [IndexOf], [CauseOf], and [AllElementErrors] to
// inspect them. Panics during evaluation are captured with their stack
// trace as [*PanicError] and reported like any other element failure.
//
// # Advisory Signals
//
// An evaluation function may call [Raise] to record an advisory signal
// against its element without interrupting it or its siblings. Signals
// are replayed in index order to the [WithOnSignal] hook after every
// chunk has reported.
//
// # Reproducibility
//
// [WithSeed] assigns each chunk an independent, deterministically
// derived sub-seed, readable inside the evaluation function via
// [ChunkSeed]. Derivation depends only on the base seed and chunk
// geometry, never on scheduling, so seeded calls are repeatable.
//
// # Worker Substrate
//
// Workers are abstracted behind the [Substrate] interface. The default
// substrate is [WorkerPool], a fixed-size goroutine pool created per
// call; construct one yourself and pass [WithSubstrate] to reuse it
// across calls and observe it via [WorkerPool.Stats]. Substrates report
// worker crashes as a distinguishable [Outcome]; the engine marks the
// crashed chunk's unreached indices as [*WorkerFaultError] and continues
// on the surviving workers.
//
// # Deadlines
//
// [WithTimeout] sets a per-call deadline checked at chunk-dispatch
// boundaries: chunks already in flight finish, chunks not yet dispatched
// fail their indices with [ErrCancelled].
package parmap
