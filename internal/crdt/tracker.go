package crdt

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/indranet/indra/internal/ids"
)

// HeadTracker is the per-peer knowledge cache described in spec.md §4.2:
// for a given (artifact, peer) pair it remembers which change hashes that
// peer is already known to have, so Prepare can send only the delta.
// Backed by an LRU cache — a node may be tracking sync state for far more
// (artifact, peer) pairs than it can usefully keep around, and an evicted
// entry simply falls back to a full-state resync next time, which is safe.
type HeadTracker struct {
	mu    sync.Mutex
	cache *lru.Cache[trackerKey, map[[32]byte]struct{}]
}

type trackerKey struct {
	Artifact [32]byte
	Peer     ids.MemberId
}

// NewHeadTracker builds a tracker holding at most size (artifact, peer)
// entries.
func NewHeadTracker(size int) *HeadTracker {
	cache, err := lru.New[trackerKey, map[[32]byte]struct{}](size)
	if err != nil {
		// Only returns an error for size <= 0; a programmer error.
		panic(err)
	}
	return &HeadTracker{cache: cache}
}

// Known returns the set of hashes previously recorded for (artifact, peer),
// and whether any record exists at all. No record means Prepare should
// send the full document state.
func (t *HeadTracker) Known(artifact [32]byte, peer ids.MemberId) (map[[32]byte]struct{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache.Get(trackerKey{Artifact: artifact, Peer: peer})
	return v, ok
}

// Merge folds hashes into the recorded knowledge for (artifact, peer).
func (t *HeadTracker) Merge(artifact [32]byte, peer ids.MemberId, hashes map[[32]byte]struct{}) {
	if len(hashes) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := trackerKey{Artifact: artifact, Peer: peer}
	existing, _ := t.cache.Get(key)
	merged := make(map[[32]byte]struct{}, len(existing)+len(hashes))
	for h := range existing {
		merged[h] = struct{}{}
	}
	for h := range hashes {
		merged[h] = struct{}{}
	}
	t.cache.Add(key, merged)
}

// RemovePeer drops every record naming peer, so a later Prepare treats
// that peer as unknown and sends it the full log. Nothing in the node
// calls it when a member leaves a realm or is blocked.
func (t *HeadTracker) RemovePeer(peer ids.MemberId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range t.cache.Keys() {
		if k.Peer == peer {
			t.cache.Remove(k)
		}
	}
}

// RemoveArtifact drops every record naming artifact. Nothing in the node
// calls it when an artifact is recalled.
func (t *HeadTracker) RemoveArtifact(artifact [32]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range t.cache.Keys() {
		if k.Artifact == artifact {
			t.cache.Remove(k)
		}
	}
}
