package parmap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks elements whose chunk was never dispatched, either
// because a fail-fast abort fired or because the per-call deadline
// expired at a dispatch boundary.
var ErrCancelled = errors.New("parmap: chunk cancelled before dispatch")

// LengthMismatchError reports input sequences that cannot be aligned.
// It is always raised before any dispatch; no element is ever evaluated.
//
// Arg is the zero-based position of the offending sequence. Arg == -1
// identifies the weights vector passed via [WithWeights].
type LengthMismatchError struct {
	Arg  int
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	if e.Arg < 0 {
		return fmt.Sprintf("parmap: weights length %d does not match input length %d", e.Got, e.Want)
	}
	return fmt.Sprintf("parmap: sequence %d has length %d, want %d (or 1 to broadcast)", e.Arg, e.Got, e.Want)
}

// TypeMismatchError reports a produced value that does not fit the
// target output shape. It is attributed to the element that produced the
// value, not the whole call.
type TypeMismatchError struct {
	Index int
	Spec  OutputSpec
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parmap: element %d produced %T (%v), which does not fit %s", e.Index, e.Value, e.Value, e.Spec)
}

// WorkerFaultError reports a worker crash that took down an entire
// chunk. Every index the crashed worker never reached is failed with the
// same fault.
type WorkerFaultError struct {
	Chunk int
	Err   error
}

func (e *WorkerFaultError) Error() string {
	return fmt.Sprintf("parmap: worker executing chunk %d crashed: %v", e.Chunk, e.Err)
}

func (e *WorkerFaultError) Unwrap() error {
	return e.Err
}

// ElementError wraps a failure together with the index of the element
// that produced it. Every per-index failure is wrapped in an
// ElementError so callers can attribute errors to specific elements.
type ElementError struct {
	Index int
	Err   error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("parmap: element %d failed: %v", e.Index, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// maxListedFailures caps how many failures an AggregateError names in
// its message. All failures remain reachable via Errors and Unwrap.
const maxListedFailures = 8

// AggregateError joins every per-index failure of a call under the
// [Deferred] policy. Errors is sorted by element index.
type AggregateError struct {
	Total  int // number of elements in the call
	Errors []*ElementError
}

func newAggregateError(total int, errs []*ElementError) *AggregateError {
	return &AggregateError{Total: total, Errors: errs}
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parmap: %d of %d elements failed", len(e.Errors), e.Total)
	for i, ee := range e.Errors {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "; and %d more", len(e.Errors)-i)
			break
		}
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "index %d: %v", ee.Index, ee.Err)
	}
	return b.String()
}

// Unwrap exposes the individual element errors for errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, ee := range e.Errors {
		out[i] = ee
	}
	return out
}

// IsElementError reports whether err (or any error in its chain) is an
// [*ElementError].
func IsElementError(err error) bool {
	if err == nil {
		return false
	}
	var ee *ElementError
	return errors.As(err, &ee)
}

// IndexOf extracts the element index from the first [*ElementError] in
// err's chain. Returns false if none is found.
func IndexOf(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.Index, true
	}
	return 0, false
}

// CauseOf unwraps the first [*ElementError] in err's chain and returns
// its underlying cause. If err is not an ElementError, it is returned
// as-is. Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.Err
	}

	return err
}

// AllElementErrors recursively collects every [*ElementError] from
// err's chain, including errors joined in an [*AggregateError].
// Returns nil if none are found.
func AllElementErrors(err error) []*ElementError {
	if err == nil {
		return nil
	}

	var out []*ElementError
	collectElementErrors(err, &out)
	return out
}

func collectElementErrors(err error, out *[]*ElementError) {
	switch e := err.(type) {
	case *ElementError:
		*out = append(*out, e)

	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			collectElementErrors(sub, out)
		}

	case interface{ Unwrap() error }:
		collectElementErrors(e.Unwrap(), out)
	}
}
