package crdt

import "bytes"

// LWW is the last-writer-wins merge policy used for alias and similar
// single-value fields: the change with the higher clock wins; a clock tie
// (only possible for two genuinely concurrent writes) is broken by
// comparing writer bytes so every replica picks the same winner.
func LWW[K comparable, V any]() MergeFunc[K, V] {
	return func(current Change[K, V], currentExists bool, incoming Change[K, V]) Change[K, V] {
		if !currentExists {
			return incoming
		}
		if incoming.Clock > current.Clock {
			return incoming
		}
		if incoming.Clock == current.Clock && bytes.Compare(incoming.Writer[:], current.Writer[:]) > 0 {
			return incoming
		}
		return current
	}
}

// MonotonicMaxUint64 merges by keeping the larger of two uint64 values,
// irrespective of clock. Used for read-position tracking (spec.md §8
// property 9): a stale resend of an older position can never roll a
// reader's progress backwards.
func MonotonicMaxUint64[K comparable]() MergeFunc[K, uint64] {
	return func(current Change[K, uint64], currentExists bool, incoming Change[K, uint64]) Change[K, uint64] {
		if !currentExists || incoming.Value > current.Value {
			return incoming
		}
		return current
	}
}
