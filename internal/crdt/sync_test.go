package crdt

import (
	"testing"

	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/wire"
)

func TestPrepareSendsFullStateToUnknownPeer(t *testing.T) {
	doc := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	a := member(1)
	if _, err := doc.Update(a, a, func(old uint64, existed bool) uint64 { return 1 }); err != nil {
		t.Fatal(err)
	}
	tracker := NewHeadTracker(64)
	var artifact [32]byte
	artifact[0] = 0xAA

	payload, err := Prepare(doc, tracker, artifact, a, member(2))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(payload.Changes) != 1 {
		t.Fatalf("expected full state (1 change) for unknown peer, got %d", len(payload.Changes))
	}
}

func TestPrepareSendsOnlyUnseenAfterApply(t *testing.T) {
	doc := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	a := member(1)
	doc.Update(a, a, func(old uint64, existed bool) uint64 { return 1 })

	tracker := NewHeadTracker(64)
	var artifact [32]byte
	peer := member(2)

	first, err := Prepare(doc, tracker, artifact, a, peer)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[[32]byte]struct{}, len(first.DeclaredHeads))
	for _, h := range first.DeclaredHeads {
		var arr [32]byte
		copy(arr[:], h)
		seen[arr] = struct{}{}
	}
	tracker.Merge(artifact, peer, seen)

	doc.Update(a, a, func(old uint64, existed bool) uint64 { return 2 })

	second, err := Prepare(doc, tracker, artifact, a, peer)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Changes) != 1 {
		t.Fatalf("expected only the new change to be sent, got %d", len(second.Changes))
	}
}

func TestApplyConvergesTwoReplicasViaPrepare(t *testing.T) {
	alice, bob := member(1), member(2)
	var artifact [32]byte
	artifact[0] = 1

	docA := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	docB := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	trackerA := NewHeadTracker(64)
	trackerB := NewHeadTracker(64)

	docA.Update(alice, alice, func(old uint64, existed bool) uint64 { return 42 })
	docB.Update(bob, bob, func(old uint64, existed bool) uint64 { return 99 })

	payloadAtoB, err := Prepare(docA, trackerA, artifact, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(docB, trackerB, artifact, payloadAtoB); err != nil {
		t.Fatalf("apply a->b: %v", err)
	}

	payloadBtoA, err := Prepare(docB, trackerB, artifact, bob, alice)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(docA, trackerA, artifact, payloadBtoA); err != nil {
		t.Fatalf("apply b->a: %v", err)
	}

	ra, rb := docA.Read(), docB.Read()
	if len(ra) != 2 || len(rb) != 2 {
		t.Fatalf("expected both replicas to converge on 2 entries, got %v and %v", ra, rb)
	}
	if ra[alice] != rb[alice] || ra[bob] != rb[bob] {
		t.Fatalf("replicas diverged: %v vs %v", ra, rb)
	}
}

func TestApplyIsIdempotentAcrossRepeatedPayloads(t *testing.T) {
	alice := member(1)
	var artifact [32]byte

	docA := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	docB := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	trackerA := NewHeadTracker(64)
	trackerB := NewHeadTracker(64)
	docA.Update(alice, alice, func(old uint64, existed bool) uint64 { return 1 })

	payload, err := Prepare(docA, trackerA, artifact, alice, member(2))
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(docB, trackerB, artifact, payload); err != nil {
		t.Fatal(err)
	}
	if err := Apply(docB, trackerB, artifact, payload); err != nil {
		t.Fatal(err)
	}
	got, ok := docB.Get(alice)
	if !ok || got != 1 {
		t.Fatalf("expected idempotent re-apply to leave value at 1, got %v ok=%v", got, ok)
	}
}

func TestBroadcastSkipsSelf(t *testing.T) {
	doc := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	self := member(1)
	doc.Update(self, self, func(old uint64, existed bool) uint64 { return 1 })
	tracker := NewHeadTracker(64)
	var artifact [32]byte

	audience := []ids.MemberId{self, member(2), member(3)}
	payloads, err := Broadcast(doc, tracker, artifact, self, audience)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected broadcast to skip self, got %d payloads", len(payloads))
	}
}

func TestApplyRejectsForeignKeyChange(t *testing.T) {
	alice, mallory := member(1), member(2)
	var artifact [32]byte

	// mallory forges a change claiming to write alice's self-write key;
	// Update would reject this before it is ever hashed, so the forgery
	// is built directly and fed to Apply as if it arrived over the wire.
	forged := Change[ids.MemberId, uint64]{Key: alice, Value: 999, Writer: mallory, Clock: 1}
	hash, err := hashChange(forged)
	if err != nil {
		t.Fatal(err)
	}
	forged.Hash = hash
	cb, err := encodeChange(forged)
	if err != nil {
		t.Fatal(err)
	}
	payload := wire.SyncPayload{ArtifactID: artifact[:], Sender: [32]byte(mallory), Changes: [][]byte{cb}}

	doc := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	tracker := NewHeadTracker(64)
	if err := Apply(doc, tracker, artifact, payload); err != nil {
		t.Fatalf("apply should drop a rejected change, not error: %v", err)
	}
	if _, ok := doc.Get(alice); ok {
		t.Fatalf("expected forged change for alice's key to be rejected, not merged")
	}
}

func TestApplyRejectsForeignKeyButStillAppliesLegitimateChanges(t *testing.T) {
	alice, mallory := member(1), member(2)
	var artifact [32]byte

	legit := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	legitCh, err := legit.Update(alice, alice, func(old uint64, existed bool) uint64 { return 7 })
	if err != nil {
		t.Fatal(err)
	}
	legitBytes, err := encodeChange(legitCh)
	if err != nil {
		t.Fatal(err)
	}

	forged := Change[ids.MemberId, uint64]{Key: alice, Value: 999, Writer: mallory, Clock: 1}
	forged.Hash, err = hashChange(forged)
	if err != nil {
		t.Fatal(err)
	}
	forgedBytes, err := encodeChange(forged)
	if err != nil {
		t.Fatal(err)
	}

	payload := wire.SyncPayload{ArtifactID: artifact[:], Sender: [32]byte(mallory), Changes: [][]byte{forgedBytes, legitBytes}}

	doc := NewDocument[ids.MemberId, uint64](MonotonicMaxUint64[ids.MemberId](), SelfWrite())
	tracker := NewHeadTracker(64)
	if err := Apply(doc, tracker, artifact, payload); err != nil {
		t.Fatal(err)
	}
	got, ok := doc.Get(alice)
	if !ok || got != 7 {
		t.Fatalf("expected legitimate change to converge despite a rejected forgery in the same payload, got %v ok=%v", got, ok)
	}
}

func TestHeadTrackerRemovePeerAndArtifact(t *testing.T) {
	tracker := NewHeadTracker(64)
	var art1, art2 [32]byte
	art2[0] = 1
	p1, p2 := member(1), member(2)

	tracker.Merge(art1, p1, map[[32]byte]struct{}{{0x01}: {}})
	tracker.Merge(art1, p2, map[[32]byte]struct{}{{0x02}: {}})
	tracker.Merge(art2, p1, map[[32]byte]struct{}{{0x03}: {}})

	tracker.RemovePeer(p1)
	if _, ok := tracker.Known(art1, p1); ok {
		t.Fatalf("expected p1 record under art1 to be removed")
	}
	if _, ok := tracker.Known(art2, p1); ok {
		t.Fatalf("expected p1 record under art2 to be removed")
	}
	if _, ok := tracker.Known(art1, p2); !ok {
		t.Fatalf("expected p2 record to survive RemovePeer(p1)")
	}

	tracker.RemoveArtifact(art1)
	if _, ok := tracker.Known(art1, p2); ok {
		t.Fatalf("expected art1 records to be removed")
	}
}
