package parmap

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Map applies fn to every element of items concurrently and collects the
// results in input order.
//
//	prices, err := parmap.Map(ctx, products, func(ctx context.Context, p Product) (float64, error) {
//	    return fetchPrice(ctx, p)
//	}, parmap.WithWorkers(5))
func Map[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), opts ...Option) ([]R, error) {
	eval := func(ctx context.Context, pos int) (any, error) {
		v, err := fn(ctx, items[pos])
		return v, err
	}
	return runTyped[R](ctx, newConfig(opts), len(items), nil, eval)
}

// ForEach applies fn to every element of items concurrently, for its
// side effects only.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error, opts ...Option) error {
	eval := func(ctx context.Context, pos int) (any, error) {
		return nil, fn(ctx, items[pos])
	}
	buf, err := run(ctx, newConfig(opts), len(items), nil, eval)
	if err != nil {
		return err
	}
	if fails := buf.failures(); len(fails) > 0 {
		return newAggregateError(len(items), fails)
	}
	return nil
}

// MapIndexed is [Map] with the element's index passed as an explicit
// argument to fn.
func MapIndexed[T, R any](ctx context.Context, items []T, fn func(context.Context, T, int) (R, error), opts ...Option) ([]R, error) {
	eval := func(ctx context.Context, pos int) (any, error) {
		v, err := fn(ctx, items[pos], pos)
		return v, err
	}
	return runTyped[R](ctx, newConfig(opts), len(items), nil, eval)
}

// Map2 applies fn pairwise over two aligned slices. A length-1 slice is
// broadcast against the other. Misaligned lengths fail with
// [*LengthMismatchError] before fn is ever called.
func Map2[A, B, R any](ctx context.Context, as []A, bs []B, fn func(context.Context, A, B) (R, error), opts ...Option) ([]R, error) {
	n, err := alignLengths(len(as), len(bs))
	if err != nil {
		return nil, err
	}
	eval := func(ctx context.Context, pos int) (any, error) {
		v, err := fn(ctx, as[broadcast(pos, len(as))], bs[broadcast(pos, len(bs))])
		return v, err
	}
	return runTyped[R](ctx, newConfig(opts), n, nil, eval)
}

// MapN applies fn across any number of aligned sequences; fn receives
// one argument per sequence, in order. Length-1 sequences broadcast.
// Misaligned lengths fail with [*LengthMismatchError] before fn is ever
// called.
func MapN(ctx context.Context, seqs [][]any, fn func(context.Context, []any) (any, error), opts ...Option) ([]any, error) {
	if len(seqs) == 0 {
		return []any{}, nil
	}
	lens := make([]int, len(seqs))
	for i, s := range seqs {
		lens[i] = len(s)
	}
	n, merr := alignLengths(lens...)
	if merr != nil {
		return nil, merr
	}
	eval := func(ctx context.Context, pos int) (any, error) {
		args := make([]any, len(seqs))
		for k, s := range seqs {
			args[k] = s[broadcast(pos, len(s))]
		}
		return fn(ctx, args)
	}
	buf, err := run(ctx, newConfig(opts), n, nil, eval)
	if err != nil {
		return nil, err
	}
	if fails := buf.failures(); len(fails) > 0 {
		return nil, newAggregateError(n, fails)
	}
	out := make([]any, n)
	for i := range buf.slots {
		out[i] = buf.slots[i].value
	}
	return out, nil
}

// MapFloat64 is [Map] with the result coerced to a float64 vector.
// Every value fn produces must be a numeric scalar; anything else fails
// that element with [*TypeMismatchError].
func MapFloat64[T any](ctx context.Context, items []T, fn func(context.Context, T) (any, error), opts ...Option) ([]float64, error) {
	return mapStrict(ctx, items, fn, NumericVector, toFloat64, opts)
}

// MapInt is [Map] with the result coerced to an int vector. Floats
// coerce only when integral; anything else fails that element with
// [*TypeMismatchError].
func MapInt[T any](ctx context.Context, items []T, fn func(context.Context, T) (any, error), opts ...Option) ([]int, error) {
	return mapStrict(ctx, items, fn, IntegerVector, toInt, opts)
}

// MapString is [Map] with the result coerced to a string vector. Only
// string scalars and fmt.Stringer values are accepted.
func MapString[T any](ctx context.Context, items []T, fn func(context.Context, T) (any, error), opts ...Option) ([]string, error) {
	return mapStrict(ctx, items, fn, CharacterVector, toString, opts)
}

// MapBool is [Map] with the result coerced to a bool vector. Only bool
// scalars are accepted.
func MapBool[T any](ctx context.Context, items []T, fn func(context.Context, T) (any, error), opts ...Option) ([]bool, error) {
	return mapStrict(ctx, items, fn, LogicalVector, toBool, opts)
}

func mapStrict[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (any, error), spec OutputSpec, coerce func(any) (R, bool), opts []Option) ([]R, error) {
	eval := func(ctx context.Context, pos int) (any, error) {
		v, err := fn(ctx, items[pos])
		if err != nil {
			return nil, err
		}
		// Validate against the output shape as the value arrives, so
		// the mismatch is attributed to this element.
		r, ok := coerce(v)
		if !ok {
			return nil, &TypeMismatchError{Index: pos, Spec: spec, Value: v}
		}
		return r, nil
	}
	return runTyped[R](ctx, newConfig(opts), len(items), nil, eval)
}

// MapAt applies fn to the elements at the listed positions only and
// returns a copy of items with those positions replaced. All other
// positions are returned unchanged. Duplicate positions are collapsed;
// an out-of-range position fails before any dispatch.
func MapAt[T any](ctx context.Context, items []T, at []int, fn func(context.Context, T) (T, error), opts ...Option) ([]T, error) {
	sel := slices.Clone(at)
	slices.Sort(sel)
	sel = slices.Compact(sel)
	for _, p := range sel {
		if p < 0 || p >= len(items) {
			return nil, fmt.Errorf("parmap: position %d out of range [0, %d)", p, len(items))
		}
	}
	return runMirrored(ctx, items, sel, fn, opts)
}

// ModifyIf applies fn to the elements matching pred and returns a copy
// of items with those elements replaced. The predicate is evaluated
// sequentially before dispatch; only matching elements are dispatched.
func ModifyIf[T any](ctx context.Context, items []T, pred func(T, int) bool, fn func(context.Context, T) (T, error), opts ...Option) ([]T, error) {
	var sel []int
	for i, it := range items {
		if pred(it, i) {
			sel = append(sel, i)
		}
	}
	return runMirrored(ctx, items, sel, fn, opts)
}

// ModifyAny is [ModifyIf] over a heterogeneous container. It
// additionally enforces that every replacement has the same dynamic
// type as the element it replaces, failing the element with
// [*TypeMismatchError] otherwise. A nil pred selects every element.
func ModifyAny(ctx context.Context, items []any, pred func(any, int) bool, fn func(context.Context, any) (any, error), opts ...Option) ([]any, error) {
	var sel []int
	for i, it := range items {
		if pred == nil || pred(it, i) {
			sel = append(sel, i)
		}
	}
	out := slices.Clone(items)
	if out == nil {
		out = []any{}
	}
	if len(sel) == 0 {
		return out, nil
	}
	eval := func(ctx context.Context, pos int) (any, error) {
		i := sel[pos]
		v, err := fn(ctx, items[i])
		if err != nil {
			return nil, err
		}
		// Modify preserves container homogeneity: the replacement
		// keeps the dynamic type of the element it replaces.
		if reflect.TypeOf(v) != reflect.TypeOf(items[i]) {
			return nil, &TypeMismatchError{Index: i, Spec: MirroredContainer, Value: v}
		}
		return v, nil
	}
	buf, err := run(ctx, newConfig(opts), len(sel), sel, eval)
	if err != nil {
		return nil, err
	}
	if fails := buf.failures(); len(fails) > 0 {
		return nil, newAggregateError(len(items), fails)
	}
	for j := range buf.slots {
		out[sel[j]] = buf.slots[j].value
	}
	return out, nil
}

// runMirrored dispatches only the selected indices and overwrites them
// in a copy of the original container.
func runMirrored[T any](ctx context.Context, items []T, sel []int, fn func(context.Context, T) (T, error), opts []Option) ([]T, error) {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}
	if len(sel) == 0 {
		return out, nil
	}
	eval := func(ctx context.Context, pos int) (any, error) {
		v, err := fn(ctx, items[sel[pos]])
		return v, err
	}
	cfg := newConfig(opts)
	// Weights, when provided, cover the full container; project them
	// onto the selection.
	if cfg.strategy == WeightedChunks && len(cfg.weights) == len(items) {
		w := make([]float64, len(sel))
		for j, i := range sel {
			w[j] = cfg.weights[i]
		}
		cfg.weights = w
	}
	buf, err := run(ctx, cfg, len(sel), sel, eval)
	if err != nil {
		return nil, err
	}
	if fails := buf.failures(); len(fails) > 0 {
		return nil, newAggregateError(len(items), fails)
	}
	for j := range buf.slots {
		if v := buf.slots[j].value; v != nil {
			out[sel[j]] = v.(T)
		}
	}
	return out, nil
}

// runTyped executes the shared engine and assembles the ordered, typed
// output, aggregating per-index failures under the [Deferred] policy.
func runTyped[R any](ctx context.Context, cfg config, n int, remap []int, eval evalFunc) ([]R, error) {
	buf, err := run(ctx, cfg, n, remap, eval)
	if err != nil {
		return nil, err
	}
	if fails := buf.failures(); len(fails) > 0 {
		return nil, newAggregateError(n, fails)
	}
	out := make([]R, n)
	for i := range buf.slots {
		if v := buf.slots[i].value; v != nil {
			out[i] = v.(R)
		}
	}
	return out, nil
}

// broadcast maps a call position onto a sequence index, pinning
// length-1 sequences to their single element.
func broadcast(pos, length int) int {
	if length == 1 {
		return 0
	}
	return pos
}

// alignLengths validates that every sequence length equals the longest
// or is 1 (broadcast), returning the aligned length N.
func alignLengths(lens ...int) (int, error) {
	n := 0
	for _, l := range lens {
		if l > n {
			n = l
		}
	}
	for arg, l := range lens {
		if l != n && l != 1 {
			return 0, &LengthMismatchError{Arg: arg, Want: n, Got: l}
		}
	}
	return n, nil
}
