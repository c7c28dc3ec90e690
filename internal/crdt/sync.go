package crdt

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/wire"
)

// changeWire is the RLP representation of a Change on the sync wire. Key
// and Value are themselves RLP-encoded so changeWire never needs to know
// the concrete K, V of the document it belongs to.
type changeWire struct {
	Hash   [32]byte
	Deps   [][32]byte
	Key    []byte
	Value  []byte
	Writer [32]byte
	Clock  uint64
}

func encodeChange[K comparable, V any](ch Change[K, V]) ([]byte, error) {
	kb, err := rlp.EncodeToBytes(ch.Key)
	if err != nil {
		return nil, err
	}
	vb, err := rlp.EncodeToBytes(ch.Value)
	if err != nil {
		return nil, err
	}
	w := changeWire{Hash: ch.Hash, Deps: ch.Deps, Key: kb, Value: vb, Writer: [32]byte(ch.Writer), Clock: ch.Clock}
	return rlp.EncodeToBytes(&w)
}

func decodeChange[K comparable, V any](b []byte) (Change[K, V], error) {
	var w changeWire
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return Change[K, V]{}, err
	}
	var key K
	if err := rlp.DecodeBytes(w.Key, &key); err != nil {
		return Change[K, V]{}, err
	}
	var val V
	if err := rlp.DecodeBytes(w.Value, &val); err != nil {
		return Change[K, V]{}, err
	}
	return Change[K, V]{
		Hash:   w.Hash,
		Deps:   w.Deps,
		Key:    key,
		Value:  val,
		Writer: ids.MemberId(w.Writer),
		Clock:  w.Clock,
	}, nil
}

// Prepare builds the sync payload self should send to recipient for the
// given document, consulting tracker for what recipient is already known
// to have. An unknown recipient gets the full document state.
func Prepare[K comparable, V any](doc *Document[K, V], tracker *HeadTracker, artifact [32]byte, self, recipient ids.MemberId) (wire.SyncPayload, error) {
	known, ok := tracker.Known(artifact, recipient)

	doc.mu.RLock()
	var toSend []Change[K, V]
	if !ok {
		toSend = make([]Change[K, V], 0, len(doc.log))
		for _, c := range doc.log {
			toSend = append(toSend, c)
		}
	} else {
		toSend = make([]Change[K, V], 0)
		for h, c := range doc.log {
			if _, seen := known[h]; !seen {
				toSend = append(toSend, c)
			}
		}
	}
	doc.mu.RUnlock()

	changes := make([][]byte, 0, len(toSend))
	declared := make([][]byte, 0, len(toSend))
	for _, ch := range toSend {
		b, err := encodeChange(ch)
		if err != nil {
			return wire.SyncPayload{}, errs.New("crdt.Prepare", errs.Serialization, err)
		}
		changes = append(changes, b)
		h := ch.Hash
		declared = append(declared, h[:])
	}

	return wire.SyncPayload{
		ArtifactID:    artifact[:],
		Sender:        [32]byte(self),
		Changes:       changes,
		DeclaredHeads: declared,
	}, nil
}

// Apply decodes and applies every change in payload (idempotently) and
// updates tracker to reflect that payload.Sender now knows everything it
// just sent plus everything it declared as its own heads.
func Apply[K comparable, V any](doc *Document[K, V], tracker *HeadTracker, artifact [32]byte, payload wire.SyncPayload) error {
	sender := ids.MemberId(payload.Sender)
	seen := make(map[[32]byte]struct{}, len(payload.Changes)+len(payload.DeclaredHeads))

	doc.mu.Lock()
	for _, cb := range payload.Changes {
		ch, err := decodeChange[K, V](cb)
		if err != nil {
			doc.mu.Unlock()
			return errs.New("crdt.Apply", errs.SyncPayloadInvalid, err)
		}
		doc.applyLocked(ch)
		seen[ch.Hash] = struct{}{}
	}
	doc.mu.Unlock()

	for _, hb := range payload.DeclaredHeads {
		if len(hb) != 32 {
			continue
		}
		var h [32]byte
		copy(h[:], hb)
		seen[h] = struct{}{}
	}
	tracker.Merge(artifact, sender, seen)
	return nil
}

// PeerPayload pairs an audience member with the payload prepared for them.
type PeerPayload struct {
	Peer    ids.MemberId
	Payload wire.SyncPayload
}

// Broadcast prepares a payload for every member of audience other than
// self.
func Broadcast[K comparable, V any](doc *Document[K, V], tracker *HeadTracker, artifact [32]byte, self ids.MemberId, audience []ids.MemberId) ([]PeerPayload, error) {
	out := make([]PeerPayload, 0, len(audience))
	for _, p := range audience {
		if p == self {
			continue
		}
		payload, err := Prepare(doc, tracker, artifact, self, p)
		if err != nil {
			return nil, err
		}
		out = append(out, PeerPayload{Peer: p, Payload: payload})
	}
	return out, nil
}
