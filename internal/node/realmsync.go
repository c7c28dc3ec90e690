package node

import (
	"lukechampine.com/blake3"

	"github.com/indranet/indra/internal/crdt"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/wire"
)

// readPositionsContentTypeID and aliasesContentTypeID mark an envelope as
// carrying a sync payload for one of the two documents every realm owns
// (spec.md §4.3), reusing the ContentTypeID-discriminator trick sync.go
// and presence.go already use so these ride the realm's existing topic.
const (
	readPositionsContentTypeID = ^uint32(0) - 2
	aliasesContentTypeID       = ^uint32(0) - 3
)

// realmDocTag derives the artifact-shaped tag the crdt and HeadTracker
// layers key on for one of a realm's two documents. It has nothing to do
// with an actual artifact; it just gives ReadPositions and Aliases
// distinct, stable slots in the shared HeadTracker.
func realmDocTag(realmID ids.RealmId, kind string) [32]byte {
	return blake3.Sum256(append([]byte("indras:realmdoc:"+kind+":"), realmID[:]...))
}

// broadcastSink is the synthetic HeadTracker recipient standing in for
// "everyone subscribed to the realm topic": there is no single peer to
// diff against for a gossip broadcast, so sends are tracked against this
// one key per (realm, document) pair to avoid re-sending the full log on
// every tick once peers have caught up.
var broadcastSink ids.MemberId

// broadcastRealmDocs pushes the current state of realmID's ReadPositions
// and Aliases documents over its gossip topic. Receivers apply it in
// handleInbound and converge the same way the home index document does
// via sync.go — the crdt layer already supports this, nothing drove it
// before this wiring existed.
func (n *Node) broadcastRealmDocs(realmID ids.RealmId) {
	r, ok := n.getRealm(realmID)
	if !ok {
		return
	}
	n.broadcastRealmDoc(realmID, readPositionsContentTypeID, realmDocTag(realmID, "readpositions"), func(tag [32]byte) (wire.SyncPayload, error) {
		return crdt.Prepare(r.ReadPositions, n.headTracker, tag, n.Self, broadcastSink)
	})
	n.broadcastRealmDoc(realmID, aliasesContentTypeID, realmDocTag(realmID, "aliases"), func(tag [32]byte) (wire.SyncPayload, error) {
		return crdt.Prepare(r.Aliases, n.headTracker, tag, n.Self, broadcastSink)
	})
}

func (n *Node) broadcastRealmDoc(realmID ids.RealmId, contentTypeID uint32, tag [32]byte, prepare func(tag [32]byte) (wire.SyncPayload, error)) {
	payload, err := prepare(tag)
	if err != nil {
		n.log.WithFields(loggerFields(realmID, err)).Debug("node: prepare realm document sync failed")
		return
	}
	if len(payload.Changes) == 0 {
		return
	}
	payloadBytes, err := wire.EncodeSyncPayload(payload)
	if err != nil {
		n.log.WithFields(loggerFields(realmID, err)).Debug("node: encode realm document sync failed")
		return
	}
	env := wire.Envelope{Sender: [32]byte(n.Self), PayloadEncrypted: payloadBytes, ContentTypeID: contentTypeID}
	envBytes, err := wire.EncodeEnvelope(env)
	if err != nil {
		n.log.WithFields(loggerFields(realmID, err)).Debug("node: encode realm document envelope failed")
		return
	}
	if err := n.transport.Broadcast(realmID, envBytes); err != nil {
		n.log.WithFields(loggerFields(realmID, err)).Debug("node: realm document broadcast failed")
	}
}

// applyRealmDoc decodes and applies an inbound ReadPositions or Aliases
// sync payload against realmID's matching document.
func (n *Node) applyRealmDoc(realmID ids.RealmId, kind string, contentTypeID uint32, payloadBytes []byte) {
	r, ok := n.getRealm(realmID)
	if !ok {
		return
	}
	payload, err := wire.DecodeSyncPayload(payloadBytes)
	if err != nil {
		n.metrics.SyncErrors.Inc()
		n.log.WithFields(loggerFields(realmID, err)).Warn("node: dropped malformed realm document payload")
		return
	}
	tag := realmDocTag(realmID, kind)
	switch contentTypeID {
	case readPositionsContentTypeID:
		if err := crdt.Apply(r.ReadPositions, n.headTracker, tag, payload); err != nil {
			n.metrics.SyncErrors.Inc()
			n.log.WithFields(loggerFields(realmID, err)).Warn("node: apply read positions sync failed")
		}
	case aliasesContentTypeID:
		if err := crdt.Apply(r.Aliases, n.headTracker, tag, payload); err != nil {
			n.metrics.SyncErrors.Inc()
			n.log.WithFields(loggerFields(realmID, err)).Warn("node: apply aliases sync failed")
		}
	}
}

// SetAlias sets self's alias within realmID and immediately broadcasts
// the resulting change so other members see it without waiting for the
// next heartbeat-cadence sync tick.
func (n *Node) SetAlias(realmID ids.RealmId, alias string) error {
	r, ok := n.getRealm(realmID)
	if !ok {
		return errs.New("node.SetAlias", errs.RealmNotFound, nil)
	}
	if err := r.SetAlias(n.Self, alias); err != nil {
		return err
	}
	n.broadcastRealmDoc(realmID, aliasesContentTypeID, realmDocTag(realmID, "aliases"), func(tag [32]byte) (wire.SyncPayload, error) {
		return crdt.Prepare(r.Aliases, n.headTracker, tag, n.Self, broadcastSink)
	})
	return nil
}

// AdvanceReadPosition records that self has read up through position in
// realmID and immediately broadcasts the resulting change.
func (n *Node) AdvanceReadPosition(realmID ids.RealmId, position uint64) error {
	r, ok := n.getRealm(realmID)
	if !ok {
		return errs.New("node.AdvanceReadPosition", errs.RealmNotFound, nil)
	}
	if err := r.AdvanceReadPosition(n.Self, position); err != nil {
		return err
	}
	n.broadcastRealmDoc(realmID, readPositionsContentTypeID, realmDocTag(realmID, "readpositions"), func(tag [32]byte) (wire.SyncPayload, error) {
		return crdt.Prepare(r.ReadPositions, n.headTracker, tag, n.Self, broadcastSink)
	})
	return nil
}
