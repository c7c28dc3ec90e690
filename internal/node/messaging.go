package node

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/realm"
	"github.com/indranet/indra/internal/wire"
)

// messageWire is the RLP-safe shadow of realm.Message: rlp has no
// encoding for signed integers, so Timestamp is narrowed to uint64, and
// HasReplyTo is carried as a uint8 flag, here rather than teaching the
// realm package about wire encoding at all.
type messageWire struct {
	ID         [32]byte
	Sender     [32]byte
	SenderName string
	Content    realm.Content
	Timestamp  uint64
	Sequence   uint64
	ReplyTo    [32]byte
	HasReplyTo uint8
	References [][32]byte
}

func encodeMessage(m realm.Message) ([]byte, error) {
	w := messageWire{
		ID:         m.ID,
		Sender:     [32]byte(m.Sender),
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  uint64(m.Timestamp),
		Sequence:   m.Sequence,
		ReplyTo:    m.ReplyTo,
		References: m.References,
	}
	if m.HasReplyTo {
		w.HasReplyTo = 1
	}
	b, err := rlp.EncodeToBytes(&w)
	if err != nil {
		return nil, errs.New("node.encodeMessage", errs.Serialization, err)
	}
	return b, nil
}

func decodeMessage(b []byte) (realm.Message, error) {
	var w messageWire
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return realm.Message{}, errs.New("node.decodeMessage", errs.Serialization, err)
	}
	return realm.Message{
		ID:         w.ID,
		Sender:     ids.MemberId(w.Sender),
		SenderName: w.SenderName,
		Content:    w.Content,
		Timestamp:  int64(w.Timestamp),
		Sequence:   w.Sequence,
		ReplyTo:    w.ReplyTo,
		HasReplyTo: w.HasReplyTo != 0,
		References: w.References,
	}, nil
}

// SendMessage appends content to self's own per-sender log in realmID and
// broadcasts the resulting message over that realm's gossip topic.
func (n *Node) SendMessage(realmID ids.RealmId, content realm.Content, replyTo *[32]byte, references [][32]byte) (realm.Message, error) {
	r, ok := n.getRealm(realmID)
	if !ok {
		return realm.Message{}, errs.New("node.SendMessage", errs.RealmNotFound, nil)
	}

	msg, err := r.Send(n.Self, n.DisplayName, content, replyTo, references, nowFunc())
	if err != nil {
		return realm.Message{}, err
	}

	if err := n.broadcastMessage(realmID, msg); err != nil {
		n.log.WithFields(loggerFields(realmID, err)).Warn("node: broadcast failed, message stays local until next retry")
	} else {
		n.metrics.MessagesSent.Inc()
	}
	return msg, nil
}

func (n *Node) broadcastMessage(realmID ids.RealmId, msg realm.Message) error {
	payload, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	env := wire.Envelope{
		Sender:           [32]byte(n.Self),
		PayloadEncrypted: payload,
		ContentTypeID:    uint32(msg.Content.Kind),
	}
	envBytes, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	return n.transport.Broadcast(realmID, envBytes)
}

// handleInbound decodes one transport message and folds it into the
// addressed realm's message log, dropping (with a warning, per spec.md
// §7) anything that fails to decode rather than propagating the failure.
func (n *Node) handleInbound(realmID ids.RealmId, data []byte) {
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		n.metrics.SyncErrors.Inc()
		n.log.WithFields(loggerFields(realmID, err)).Warn("node: dropped malformed envelope")
		return
	}
	if env.ContentTypeID == syncContentTypeID {
		n.applySyncPayload(env.PayloadEncrypted)
		return
	}
	if env.ContentTypeID == heartbeatContentTypeID {
		n.recordHeartbeat(realmID, ids.MemberId(env.Sender))
		return
	}
	if env.ContentTypeID == readPositionsContentTypeID {
		n.applyRealmDoc(realmID, "readpositions", readPositionsContentTypeID, env.PayloadEncrypted)
		return
	}
	if env.ContentTypeID == aliasesContentTypeID {
		n.applyRealmDoc(realmID, "aliases", aliasesContentTypeID, env.PayloadEncrypted)
		return
	}
	msg, err := decodeMessage(env.PayloadEncrypted)
	if err != nil {
		n.metrics.SyncErrors.Inc()
		n.log.WithFields(loggerFields(realmID, err)).Warn("node: dropped malformed message payload")
		return
	}

	r, ok := n.getRealm(realmID)
	if !ok {
		return
	}
	accepted, err := r.Receive(msg, n.Verify)
	if err != nil {
		n.log.WithFields(loggerFields(realmID, err)).Warn("node: rejected inbound message")
		return
	}
	if !accepted {
		return
	}
	n.metrics.MessagesRecv.Inc()
	n.emit(Event{Kind: EventMessageReceived, Realm: realmID, Message: &msg})
}
