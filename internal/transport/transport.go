// Package transport wires the libp2p host, gossipsub topic binding, and
// LAN mDNS discovery this module's gossip plane runs on. It is an
// external-collaborator concern named by spec.md §1 ("the raw packet
// transport and NAT traversal") but the gossipsub topic-per-realm binding
// described in §4.3/§4.5 lives here, grounded on the teacher's own
// `core/network.go` pubsub wiring.
package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// Config bounds the inputs transport needs, a subset of pkg/config.Config.
type Config struct {
	ListenAddr     string
	DiscoveryTag   string
	BootstrapPeers []string
}

// Message is an inbound gossipsub message, stripped down to what callers
// need: which realm topic it arrived on and the sender's libp2p peer id
// (not yet resolved to a MemberId — that requires verifying the envelope
// signature inside the payload, a realm-layer concern).
type Message struct {
	Topic ids.RealmId
	From  peer.ID
	Data  []byte
}

// Transport owns the single libp2p host and pubsub instance per spec.md
// §5 ("the node owns exactly one handle to the transport").
type Transport struct {
	host   host.Host
	pubsub *pubsub.PubSub
	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Logger

	mu     sync.Mutex
	topics map[ids.RealmId]*pubsub.Topic
	subs   map[ids.RealmId]*pubsub.Subscription
}

// New constructs a libp2p host bound to cfg.ListenAddr, a gossipsub
// router over it, and an mDNS discovery service tagged with
// cfg.DiscoveryTag. It then dials every bootstrap peer best-effort.
func New(cfg Config, log *logrus.Logger) (*Transport, error) {
	if log == nil {
		log = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		cancel()
		return nil, errs.New("transport.New", errs.Network, err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, errs.New("transport.New", errs.Network, err)
	}

	t := &Transport{
		host:   h,
		pubsub: ps,
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		topics: make(map[ids.RealmId]*pubsub.Topic),
		subs:   make(map[ids.RealmId]*pubsub.Subscription),
	}

	for _, addr := range cfg.BootstrapPeers {
		pi, err := peer.AddrInfoFromString(addr)
		if err != nil {
			log.WithFields(logrus.Fields{"addr": addr}).Warn("transport: invalid bootstrap address")
			continue
		}
		if err := h.Connect(ctx, *pi); err != nil {
			log.WithFields(logrus.Fields{"addr": addr, "err": err}).Warn("transport: bootstrap dial failed")
			continue
		}
	}

	discoveryTag := cfg.DiscoveryTag
	if discoveryTag == "" {
		discoveryTag = "indra-mdns"
	}
	mdns.NewMdnsService(h, discoveryTag, discoveryNotifee{t})

	return t, nil
}

// HostID is this node's libp2p peer id, for diagnostics only — it is not
// a MemberId and must never be treated as one.
func (t *Transport) HostID() peer.ID { return t.host.ID() }

type discoveryNotifee struct{ t *Transport }

func (d discoveryNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == d.t.host.ID() {
		return
	}
	if err := d.t.host.Connect(d.t.ctx, info); err != nil {
		d.t.log.WithFields(logrus.Fields{"peer": info.ID.String(), "err": err}).Warn("transport: mDNS connect failed")
		return
	}
	d.t.log.WithFields(logrus.Fields{"peer": info.ID.String()}).Info("transport: connected via mDNS")
}

func topicName(realm ids.RealmId) string {
	return "indras/realm/" + hex.EncodeToString(realm[:])
}

func (t *Transport) joinLocked(realm ids.RealmId) (*pubsub.Topic, error) {
	if top, ok := t.topics[realm]; ok {
		return top, nil
	}
	top, err := t.pubsub.Join(topicName(realm))
	if err != nil {
		return nil, fmt.Errorf("join realm topic: %w", err)
	}
	t.topics[realm] = top
	return top, nil
}

// Broadcast publishes data on realm's gossip topic, joining it first if
// this is the first publish/subscribe on that realm.
func (t *Transport) Broadcast(realm ids.RealmId, data []byte) error {
	t.mu.Lock()
	top, err := t.joinLocked(realm)
	t.mu.Unlock()
	if err != nil {
		return errs.New("transport.Broadcast", errs.NotConnected, err)
	}
	if err := top.Publish(t.ctx, data); err != nil {
		return errs.New("transport.Broadcast", errs.NotConnected, err)
	}
	return nil
}

// Subscribe binds realm's gossip topic and returns a channel of inbound
// messages. The channel closes when the transport is stopped or the
// underlying subscription errors.
func (t *Transport) Subscribe(realm ids.RealmId) (<-chan Message, error) {
	t.mu.Lock()
	top, err := t.joinLocked(realm)
	if err != nil {
		t.mu.Unlock()
		return nil, errs.New("transport.Subscribe", errs.NotConnected, err)
	}
	sub, ok := t.subs[realm]
	if !ok {
		sub, err = top.Subscribe()
		if err != nil {
			t.mu.Unlock()
			return nil, errs.New("transport.Subscribe", errs.NotConnected, err)
		}
		t.subs[realm] = sub
	}
	t.mu.Unlock()

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Next(t.ctx)
			if err != nil {
				t.log.WithFields(logrus.Fields{"realm": realm, "err": err}).Debug("transport: subscription ended")
				return
			}
			select {
			case out <- Message{Topic: realm, From: msg.GetFrom(), Data: msg.Data}:
			case <-t.ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Unsubscribe tears down realm's subscription (e.g. on realm Leave),
// leaving the topic joined in case a later broadcast still needs it.
func (t *Transport) Unsubscribe(realm ids.RealmId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sub, ok := t.subs[realm]; ok {
		sub.Cancel()
		delete(t.subs, realm)
	}
}

// Stop drains and closes the transport: cancels every subscription,
// cancels the background context, and closes the libp2p host. Per
// spec.md §5, stop() is the last thing the node facade does.
func (t *Transport) Stop() error {
	t.mu.Lock()
	for realm, sub := range t.subs {
		sub.Cancel()
		delete(t.subs, realm)
	}
	t.mu.Unlock()
	t.cancel()
	if err := t.host.Close(); err != nil {
		return errs.New("transport.Stop", errs.Network, err)
	}
	return nil
}
