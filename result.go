package parmap

// outcome is the state of one result slot.
type outcome uint8

const (
	outcomeEmpty outcome = iota
	outcomeValue
	outcomeFailure
)

// elementResult is the tagged outcome of evaluating one element, keyed
// by its original index.
type elementResult struct {
	index int
	kind  outcome
	value any
	err   error
}

// resultBuffer is an ordered, index-addressable container of per-element
// outcomes, pre-allocated before dispatch. Each slot transitions from
// empty to filled exactly once, written by exactly one worker, so slots
// need no locks; completion bookkeeping is serialized by the
// coordinator.
//
// Slots are addressed by position within the call; index carries the
// caller-visible element index, which differs from the position for
// predicate-gated calls.
type resultBuffer struct {
	slots []elementResult
}

func newResultBuffer(n int) *resultBuffer {
	return &resultBuffer{slots: make([]elementResult, n)}
}

func (b *resultBuffer) len() int { return len(b.slots) }

func (b *resultBuffer) putValue(pos, index int, v any) {
	b.fill(pos, elementResult{index: index, kind: outcomeValue, value: v})
}

func (b *resultBuffer) putFailure(pos, index int, err error) {
	b.fill(pos, elementResult{index: index, kind: outcomeFailure, err: err})
}

func (b *resultBuffer) fill(pos int, r elementResult) {
	if b.slots[pos].kind != outcomeEmpty {
		panic("parmap: result slot filled twice")
	}
	b.slots[pos] = r
}

func (b *resultBuffer) empty(pos int) bool {
	return b.slots[pos].kind == outcomeEmpty
}

// failures collects every failed slot as an [*ElementError], ordered by
// position (and therefore by element index). It must only be called
// after every chunk has reported; an empty slot at that point is a
// defect.
func (b *resultBuffer) failures() []*ElementError {
	var out []*ElementError
	for i := range b.slots {
		s := &b.slots[i]
		switch s.kind {
		case outcomeEmpty:
			panic("parmap: result slot never filled")
		case outcomeFailure:
			out = append(out, &ElementError{Index: s.index, Err: s.err})
		}
	}
	return out
}
