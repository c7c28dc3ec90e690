// Package node implements the spec.md §9 Node facade: the single root
// owner of identity, transport, storage, and every live realm, wiring
// together every other internal package into the concurrency model
// described in §5 ("start constructs; stop tears down and awaits every
// child task").
package node

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"lukechampine.com/blake3"

	"github.com/indranet/indra/internal/artifact"
	"github.com/indranet/indra/internal/crdt"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/keystore"
	"github.com/indranet/indra/internal/metrics"
	"github.com/indranet/indra/internal/realm"
	"github.com/indranet/indra/internal/sentiment"
	"github.com/indranet/indra/internal/syncreg"
	"github.com/indranet/indra/internal/transport"
	"github.com/indranet/indra/pkg/config"
)

// headTrackerSize bounds the per-peer change-hash cache; an evicted entry
// just costs the next sync a full resync, so this can stay modest.
const headTrackerSize = 4096

// defaultGCInterval is how often the artifact index's expired timed
// grants are swept (SPEC_FULL.md "gc_expired scheduling").
const defaultGCInterval = 30 * time.Second

// Event is the node's fan-out of everything observable that happened
// locally or arrived from a peer: realm presence changes, messages,
// artifact access-control notifications.
type Event struct {
	Kind         EventKind
	Realm        ids.RealmId
	MemberEvent  *realm.MemberEvent
	Message      *realm.Message
	Notification *artifact.Notification
}

// EventKind discriminates the Event variants above.
type EventKind int

const (
	EventMemberChange EventKind = iota
	EventMessageReceived
	EventArtifactNotification
	EventSyncDropped
)

// Node is the root owner described in spec.md §9: identity, the single
// transport handle, every live realm, and the task supervisor that tracks
// every long-running operation spawned on its behalf.
type Node struct {
	Self        ids.MemberId
	DisplayName string

	cfg config.Config
	log *logrus.Logger

	keys keystore.KeyMaterial

	transport *transport.Transport
	metrics   *metrics.Collectors

	store       *artifact.Store
	homeIndex   *artifact.Index
	contacts    *sentiment.Book
	trust       *sentiment.TrustGraph
	headTracker *crdt.HeadTracker
	syncReg     *syncreg.Registry

	mu     sync.RWMutex
	realms map[ids.RealmId]*realm.Realm

	events chan Event
	sup    *supervisor

	gcInterval        time.Duration
	heartbeatInterval time.Duration

	// Verify is an optional, pluggable per-message signature check
	// consulted by every realm's Receive. It defaults to nil (no
	// verification performed): the concrete ML-DSA-65 signer this
	// module's key material declares (keystore.Signer) is an explicit
	// out-of-scope interface boundary (spec.md §1), with no concrete
	// implementation wired in here. An embedder that supplies one should
	// set this field before calling Start.
	Verify func(sender ids.MemberId, msg realm.Message) bool
}

// deriveMemberID fingerprints a signing public key into the 32-byte
// identifier used everywhere else in the module.
func deriveMemberID(signingPublicKey []byte) ids.MemberId {
	return ids.MemberId(blake3.Sum256(signingPublicKey))
}

// New wires every internal package into a Node, binding a real libp2p
// transport at cfg.Network.ListenAddr. It does not yet start any
// background task — call Start for that.
func New(cfg config.Config, keys keystore.KeyMaterial, log *logrus.Logger) (*Node, error) {
	if log == nil {
		log = logrus.New()
	}
	self := deriveMemberID(keys.SigningPublicKey)

	store, err := artifact.NewStore(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(transport.Config{
		ListenAddr:     cfg.Network.ListenAddr,
		DiscoveryTag:   cfg.Network.DiscoveryTag,
		BootstrapPeers: cfg.Network.BootstrapPeers,
	}, log.WithField("component", "transport").Logger)
	if err != nil {
		return nil, err
	}

	n := &Node{
		Self:              self,
		DisplayName:       cfg.DisplayName,
		cfg:               cfg,
		log:               log,
		keys:              keys,
		transport:         tr,
		metrics:           metrics.New(),
		store:             store,
		homeIndex:         artifact.NewIndex(self, store, nil, log.WithField("component", "artifact").Logger),
		contacts:          sentiment.NewBook(self, log.WithField("component", "sentiment").Logger),
		trust:             sentiment.NewTrustGraph(),
		headTracker:       crdt.NewHeadTracker(headTrackerSize),
		syncReg:           syncreg.NewRegistry(log.WithField("component", "syncreg").Logger),
		realms:            make(map[ids.RealmId]*realm.Realm),
		events:            make(chan Event, 256),
		sup:               newSupervisor(),
		gcInterval:        defaultGCInterval,
		heartbeatInterval: realm.HeartbeatInterval,
	}

	n.realms[ids.HomeRealm(self)] = realm.NewGeneralRealm(ids.HomeRealm(self), self)
	n.realms[ids.InboxRealm(self)] = realm.NewGeneralRealm(ids.InboxRealm(self), self)

	return n, nil
}

// Events returns the channel every locally-observable occurrence is
// published on. Callers must keep draining it; Node never blocks a
// background task waiting for a slow reader (emit drops with a warning
// instead).
func (n *Node) Events() <-chan Event { return n.events }

func (n *Node) emit(ev Event) {
	select {
	case n.events <- ev:
	default:
		n.log.Warn("node: event channel full, dropping event")
	}
}

// Metrics exposes the private prometheus registry for embedders that want
// to serve it.
func (n *Node) Metrics() *metrics.Collectors { return n.metrics }

// Start activates the home and inbox realms, subscribes their gossip
// topics, and spawns the background tasks (gc sweep, sync reconciler)
// that run for the node's lifetime. Per spec.md §5, no task blocks the
// transport reader: each subscription gets its own goroutine.
func (n *Node) Start(ctx context.Context) error {
	n.mu.RLock()
	home := n.realms[ids.HomeRealm(n.Self)]
	inbox := n.realms[ids.InboxRealm(n.Self)]
	n.mu.RUnlock()
	home.Activate()
	inbox.Activate()

	if err := n.subscribeRealm(ctx, ids.HomeRealm(n.Self)); err != nil {
		return err
	}
	if err := n.subscribeRealm(ctx, ids.InboxRealm(n.Self)); err != nil {
		return err
	}

	n.sup.spawn(ctx, "gc-expired", n.gcLoop)
	n.sup.spawn(ctx, "sync-reconcile", n.reconcileLoop)
	n.sup.spawn(ctx, "heartbeat", n.heartbeatLoop)

	n.log.WithField("self", n.Self).Info("node: started")
	return nil
}

// Stop cancels every background task, tears down the sync registry, and
// closes the transport, in that order (spec.md §5).
func (n *Node) Stop() error {
	n.sup.stopAll()
	n.syncReg.Stop()
	close(n.events)
	if err := n.transport.Stop(); err != nil {
		return errs.New("node.Stop", errs.Network, err)
	}
	n.log.WithField("self", n.Self).Info("node: stopped")
	return nil
}
