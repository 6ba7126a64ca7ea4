package parmap

import (
	"context"
	"sort"
	"sync"
)

// Signal is an advisory condition raised while evaluating one element.
// Signals never interrupt the raising element or its siblings; they are
// recorded per index and replayed, in index order, to the [WithOnSignal]
// hook after every chunk has reported.
type Signal struct {
	// Index is the element the signal was raised against.
	Index int

	// Kind is a caller-defined classification, e.g. "warning".
	Kind string

	// Payload is an arbitrary value attached by the raiser.
	Payload any
}

type signalKey struct{}

// Raise records an advisory signal against the element currently being
// evaluated. Calling Raise outside an evaluation function is a no-op.
func Raise(ctx context.Context, kind string, payload any) {
	rec, ok := ctx.Value(signalKey{}).(*signalRecorder)
	if !ok {
		return
	}
	rec.sink.add(Signal{Index: rec.index, Kind: kind, Payload: payload})
}

// signalSink accumulates signals from all chunks of one call.
type signalSink struct {
	mu      sync.Mutex
	signals []Signal
}

func (s *signalSink) add(sig Signal) {
	s.mu.Lock()
	s.signals = append(s.signals, sig)
	s.mu.Unlock()
}

// replay delivers recorded signals in element-index order. Called after
// all chunks have reported, so no locking is needed for the sort.
func (s *signalSink) replay(fn func(Signal)) {
	if fn == nil || len(s.signals) == 0 {
		return
	}
	sort.SliceStable(s.signals, func(i, j int) bool {
		return s.signals[i].Index < s.signals[j].Index
	})
	for _, sig := range s.signals {
		fn(sig)
	}
}

// signalRecorder tracks the element a chunk's worker is currently
// evaluating. Elements within a chunk run sequentially on one worker,
// so index needs no lock.
type signalRecorder struct {
	sink  *signalSink
	index int
}

func withSignalRecorder(ctx context.Context, rec *signalRecorder) context.Context {
	return context.WithValue(ctx, signalKey{}, rec)
}
