package node

import (
	"context"
	"time"

	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/wire"
)

// heartbeatContentTypeID marks an envelope as a presence heartbeat rather
// than a realm.Message, the same reserved-ContentTypeID trick sync.go
// uses for sync payloads so a single realm topic carries every kind of
// traffic without a second gossip subscription.
const heartbeatContentTypeID = ^uint32(0) - 1

// heartbeatLoop emits a heartbeat into every realm this node currently
// knows about, on a fixed interval, until ctx is cancelled. This is what
// drives §4.3 presence: RecordHeartbeat is what actually admits a member
// into a general realm and fans out MemberEvents, so nothing else in the
// node ever calls it for self without this loop running.
func (n *Node) heartbeatLoop(ctx context.Context) {
	n.emitHeartbeats()
	ticker := time.NewTicker(n.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.emitHeartbeats()
		case <-ctx.Done():
			return
		}
	}
}

func (n *Node) emitHeartbeats() {
	n.mu.RLock()
	realmIDs := make([]ids.RealmId, 0, len(n.realms))
	for id := range n.realms {
		realmIDs = append(realmIDs, id)
	}
	n.mu.RUnlock()

	for _, id := range realmIDs {
		n.recordHeartbeat(id, n.Self)
		if err := n.broadcastHeartbeat(id); err != nil {
			n.log.WithFields(loggerFields(id, err)).Debug("node: heartbeat broadcast failed")
		}
		n.broadcastRealmDocs(id)
	}
}

// recordHeartbeat folds a heartbeat from member (self or a peer) into
// realmID's presence state and fans out every MemberEvent it produces.
func (n *Node) recordHeartbeat(realmID ids.RealmId, member ids.MemberId) {
	r, ok := n.getRealm(realmID)
	if !ok {
		return
	}
	for _, ev := range r.RecordHeartbeat(member, nowFunc()) {
		ev := ev
		n.emit(Event{Kind: EventMemberChange, Realm: realmID, MemberEvent: &ev})
	}
}

// broadcastHeartbeat publishes an empty-payload heartbeat envelope over
// realmID's gossip topic.
func (n *Node) broadcastHeartbeat(realmID ids.RealmId) error {
	env := wire.Envelope{Sender: [32]byte(n.Self), ContentTypeID: heartbeatContentTypeID}
	envBytes, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	return n.transport.Broadcast(realmID, envBytes)
}
