package node

import (
	"context"
	"time"

	"github.com/indranet/indra/internal/crdt"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/syncreg"
	"github.com/indranet/indra/internal/wire"
)

// syncContentTypeID marks an envelope as carrying a wire.SyncPayload
// instead of a realm.Message, so a single inbox topic can carry both
// without a second gossip subscription per artifact.
const syncContentTypeID = ^uint32(0)

// syncInterval is how often a live sync session re-prepares and
// re-broadcasts its delta against the peer's last known heads.
const syncInterval = 5 * time.Second

// startSyncSession drives the §4.5 document-sync protocol for one
// (artifact, peer) pair: periodically Prepare a payload against the home
// index document and push it over the peer's inbox topic, until the
// session is reconciled away. The payload is not filtered to that
// artifact's entry: it carries every change of the home index document
// the tracker does not record the peer as knowing under this artifact.
func (n *Node) startSyncSession(ctx context.Context, s syncreg.Session) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	n.metrics.LiveSyncSessions.Inc()
	defer n.metrics.LiveSyncSessions.Dec()

	for {
		select {
		case <-ticker.C:
			n.pushSyncPayload(s)
		case <-ctx.Done():
			return
		}
	}
}

func (n *Node) pushSyncPayload(s syncreg.Session) {
	payload, err := crdt.Prepare(n.homeIndex.Document(), n.headTracker, s.Pair.Artifact.Value, n.Self, s.Pair.Peer)
	if err != nil {
		n.log.WithError(err).Warn("node: prepare sync payload failed")
		return
	}
	payloadBytes, err := wire.EncodeSyncPayload(payload)
	if err != nil {
		n.log.WithError(err).Warn("node: encode sync payload failed")
		return
	}
	env := wire.Envelope{Sender: [32]byte(n.Self), PayloadEncrypted: payloadBytes, ContentTypeID: syncContentTypeID}
	envBytes, err := wire.EncodeEnvelope(env)
	if err != nil {
		n.log.WithError(err).Warn("node: encode sync envelope failed")
		return
	}
	if err := n.transport.Broadcast(ids.InboxRealm(s.Pair.Peer), envBytes); err != nil {
		n.log.WithFields(loggerFields(ids.InboxRealm(s.Pair.Peer), err)).Debug("node: sync broadcast failed")
	}
}

// applySyncPayload decodes and applies an inbound sync payload against
// the home index document. A corrupt payload is dropped with a warning
// rather than propagated, per spec.md §7.
func (n *Node) applySyncPayload(payloadBytes []byte) {
	payload, err := wire.DecodeSyncPayload(payloadBytes)
	if err != nil {
		n.metrics.SyncErrors.Inc()
		n.log.WithError(err).Warn("node: dropped malformed sync payload")
		return
	}
	var artifactTag [32]byte
	copy(artifactTag[:], payload.ArtifactID)
	if err := crdt.Apply(n.homeIndex.Document(), n.headTracker, artifactTag, payload); err != nil {
		n.metrics.SyncErrors.Inc()
		n.log.WithError(err).Warn("node: apply sync payload failed")
	}
}
