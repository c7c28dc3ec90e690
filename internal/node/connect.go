package node

import (
	"context"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/indranet/indra/internal/connect"
	"github.com/indranet/indra/internal/encounter"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/realm"
	"github.com/indranet/indra/internal/sentiment"
)

// Connect starts a direct-connect attempt toward peer: a ConnectionNotify
// carrying this node's signing and KEM public keys is sent to peer's
// inbox realm, and the resulting Attempt already knows which side
// initiates the KEM handshake (spec.md §8 property 2).
func (n *Node) Connect(peer ids.MemberId) (*connect.Attempt, error) {
	attempt := connect.NewAttempt(n.Self, peer)
	notify := connect.ConnectionNotify{
		From:             n.Self,
		SigningPublicKey: n.keys.SigningPublicKey,
		KEMPublicKey:     n.keys.KEMPublicKey,
		Timestamp:        nowFunc().Unix(),
	}
	payload, err := rlp.EncodeToBytes(&notify)
	if err != nil {
		return nil, errs.New("node.Connect", errs.Serialization, err)
	}
	content := realm.Content{Kind: realm.ContentExtension, ExtensionType: "indra.connect.notify", ExtensionPayload: payload}
	if err := n.publishInbox(peer, content); err != nil {
		return nil, err
	}
	if err := n.contacts.AddPending(peer, "", nowFunc().Unix()); err != nil {
		n.log.WithError(err).Warn("node: failed to record pending contact")
	}
	return attempt, nil
}

// CreateEncounter begins a time-windowed code exchange and subscribes to
// its current-window gossip topic.
func (n *Node) CreateEncounter(ctx context.Context, code string) (*encounter.Session, error) {
	sess := encounter.NewSession(code, nowFunc())
	if err := n.subscribeRealm(ctx, sess.Topic); err != nil {
		return nil, err
	}
	return sess, nil
}

// JoinEncounter is CreateEncounter's symmetric counterpart: both sides
// call the same operation, since the topic derivation only depends on
// the spoken code and the current minute window.
func (n *Node) JoinEncounter(ctx context.Context, code string) (*encounter.Session, error) {
	return n.CreateEncounter(ctx, code)
}

// IntroduceEncounter crystallizes a completed encounter into a confirmed
// contact and a shared DM realm, per spec.md §8 scenario S7.
func (n *Node) IntroduceEncounter(ctx context.Context, sess *encounter.Session) (ids.RealmId, error) {
	dmRealm, err := sess.Introduce(n.Self)
	if err != nil {
		return ids.RealmId{}, err
	}
	if err := n.contacts.Confirm(*sess.Peer); err != nil {
		return ids.RealmId{}, err
	}
	if _, err := n.JoinRealm(ctx, dmRealm); err != nil {
		return ids.RealmId{}, err
	}
	return dmRealm, nil
}

// Block runs the sentiment/block cascade (spec.md §4.6, §8 property 8):
// sentiment -1, contact removal, and leaving every realm the target
// currently shares with this node.
func (n *Node) Block(target ids.MemberId) (sentiment.BlockResult, error) {
	result, err := sentiment.Block(n.contacts, target, n.realmsOf, n.LeaveRealm, n.log)
	if err != nil {
		return sentiment.BlockResult{}, err
	}
	n.metrics.BlockEvents.Inc()
	return result, nil
}
