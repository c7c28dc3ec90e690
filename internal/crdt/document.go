// Package crdt implements the per-document replica described in spec.md
// §4.2: an opaque change log whose causal frontier ("heads") drives
// incremental sync. Convergence does not depend on replaying changes in
// causal order — each document's MergeFunc is a commutative, associative,
// idempotent join, so applying the same set of changes in any order
// produces the same materialized value (spec.md §8 property 4).
package crdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// Change is one entry in a document's change log: a key/value mutation by
// Writer, causally dependent on Deps (the heads at the time it was made).
type Change[K comparable, V any] struct {
	Hash   [32]byte
	Deps   [][32]byte
	Key    K
	Value  V
	Writer ids.MemberId
	Clock  uint64
}

// MergeFunc resolves concurrent writes to the same key. It must be a
// commutative, associative, idempotent join over (current, incoming) so
// that Document convergence does not depend on application order.
type MergeFunc[K comparable, V any] func(current Change[K, V], currentExists bool, incoming Change[K, V]) Change[K, V]

// WriteGuard rejects a mutation before it is ever turned into a Change.
// Used to enforce the self-write constraint (I4): a key under LWW or
// monotonic-max semantics may only be written by the member it names.
type WriteGuard[K comparable] func(key K, writer ids.MemberId) bool

// SelfWrite is the WriteGuard for documents keyed by the writer's own
// MemberId (read positions, aliases): a member may only write its own key.
func SelfWrite() WriteGuard[ids.MemberId] {
	return func(key, writer ids.MemberId) bool { return key == writer }
}

// Document is a typed, replicated key/value CRDT. K and V must be
// RLP-encodable (structs of primitives, arrays, slices and strings — no
// maps or interfaces) since changes are hashed and serialized with RLP.
type Document[K comparable, V any] struct {
	mu      sync.RWMutex
	merge   MergeFunc[K, V]
	guard   WriteGuard[K]
	entries map[K]Change[K, V]
	log     map[[32]byte]Change[K, V]
	heads   map[[32]byte]struct{}
	clock   uint64
}

// NewDocument constructs an empty document with the given merge policy
// and an optional write guard (nil permits any writer for any key).
func NewDocument[K comparable, V any](merge MergeFunc[K, V], guard WriteGuard[K]) *Document[K, V] {
	return &Document[K, V]{
		merge:   merge,
		guard:   guard,
		entries: make(map[K]Change[K, V]),
		log:     make(map[[32]byte]Change[K, V]),
		heads:   make(map[[32]byte]struct{}),
	}
}

// Read materializes the current value of every key.
func (d *Document[K, V]) Read() map[K]V {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[K]V, len(d.entries))
	for k, ch := range d.entries {
		out[k] = ch.Value
	}
	return out
}

// Get materializes the current value of a single key.
func (d *Document[K, V]) Get(key K) (V, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.entries[key]
	return ch.Value, ok
}

// Heads returns the document's current causal frontier: the hashes of
// changes that have no recorded successor.
func (d *Document[K, V]) Heads() [][32]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([][32]byte, 0, len(d.heads))
	for h := range d.heads {
		out = append(out, h)
	}
	return out
}

// Update applies a local mutation: mutate receives the current value (and
// whether the key existed) and returns the new value. The resulting
// change depends on every current head, is appended to the log, and is
// immediately observable via Read.
func (d *Document[K, V]) Update(writer ids.MemberId, key K, mutate func(old V, existed bool) V) (Change[K, V], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.guard != nil && !d.guard(key, writer) {
		return Change[K, V]{}, errs.New("crdt.Update", errs.InvalidOperation, fmt.Errorf("writer is not permitted to mutate this key"))
	}

	cur, existed := d.entries[key]
	var oldVal V
	if existed {
		oldVal = cur.Value
	}
	newVal := mutate(oldVal, existed)

	d.clock++
	ch := Change[K, V]{
		Deps:   headsSlice(d.heads),
		Key:    key,
		Value:  newVal,
		Writer: writer,
		Clock:  d.clock,
	}
	hash, err := hashChange(ch)
	if err != nil {
		return Change[K, V]{}, errs.New("crdt.Update", errs.Serialization, err)
	}
	ch.Hash = hash
	d.applyLocked(ch)
	return ch, nil
}

// applyLocked records ch in the log and frontier and joins it into the
// materialized entries. It is idempotent: applying an already-seen hash is
// a no-op. It also re-checks d.guard: Update already enforces the
// self-write constraint (I4) on the local path, but applyLocked is the
// only chokepoint a remote change from Apply passes through, so a forged
// change for someone else's key is dropped here rather than merged —
// the sender is at fault, not a reason to fail the whole payload (§8
// property 9: convergence is unaffected by a rejected malicious change).
// Callers must hold d.mu.
func (d *Document[K, V]) applyLocked(ch Change[K, V]) bool {
	if d.guard != nil && !d.guard(ch.Key, ch.Writer) {
		return false
	}
	if _, dup := d.log[ch.Hash]; dup {
		return false
	}
	d.log[ch.Hash] = ch
	for _, dep := range ch.Deps {
		delete(d.heads, dep)
	}
	d.heads[ch.Hash] = struct{}{}

	cur, existed := d.entries[ch.Key]
	d.entries[ch.Key] = d.merge(cur, existed, ch)
	return true
}

func headsSlice(heads map[[32]byte]struct{}) [][32]byte {
	out := make([][32]byte, 0, len(heads))
	for h := range heads {
		out = append(out, h)
	}
	return out
}

func hashChange[K comparable, V any](ch Change[K, V]) ([32]byte, error) {
	kb, err := rlp.EncodeToBytes(ch.Key)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode key: %w", err)
	}
	vb, err := rlp.EncodeToBytes(ch.Value)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode value: %w", err)
	}
	deps := append([][32]byte(nil), ch.Deps...)
	sort.Slice(deps, func(i, j int) bool { return bytes.Compare(deps[i][:], deps[j][:]) < 0 })

	var buf bytes.Buffer
	buf.WriteString("indras:crdt:change:")
	writeLP(&buf, kb)
	writeLP(&buf, vb)
	buf.Write(ch.Writer[:])
	var clockBuf [8]byte
	binary.BigEndian.PutUint64(clockBuf[:], ch.Clock)
	buf.Write(clockBuf[:])
	for _, dep := range deps {
		buf.Write(dep[:])
	}
	return blake3.Sum256(buf.Bytes()), nil
}

func writeLP(buf *bytes.Buffer, b []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}
