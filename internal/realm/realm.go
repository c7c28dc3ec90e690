// Package realm implements the spec.md §4.3 realm state machine: a
// shared gossip topic coupled to a membership view, a presence/heartbeat
// model, a per-sender causally-ordered message log, and the two
// dedicated CRDT documents (read positions, aliases) every realm owns.
package realm

import (
	"sync"
	"time"

	"github.com/indranet/indra/internal/crdt"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// State is a position in the Joining -> Active -> Leaving state machine.
type State int

const (
	StateJoining State = iota
	StateActive
	StateLeaving
)

// Kind distinguishes structural peer-set realms (I5: membership fixed by
// the realm's own ID) from general realms, whose membership is the set of
// members presence has admitted.
type Kind int

const (
	KindPeerSet Kind = iota
	KindGeneral
)

// HeartbeatInterval and OnlineMultiplier bound presence: a member is
// online if heartbeats have been seen within OnlineMultiplier intervals.
const (
	HeartbeatInterval = 20 * time.Second
	OnlineMultiplier  = 3
)

// EventKind is one of the MemberEvent variants spec.md §4.3 fans out.
type EventKind int

const (
	EventDiscovered EventKind = iota
	EventJoined
	EventLeft
	EventUpdated
)

// MemberEvent is emitted by RecordHeartbeat and Leave for the node's
// global event fan-out.
type MemberEvent struct {
	Kind   EventKind
	Realm  ids.RealmId
	Member ids.MemberId
	At     time.Time
}

type presenceState struct {
	lastHeartbeat time.Time
	admitted      bool
}

// Realm is one realm's local state: its identity, structural or
// presence-derived membership, presence tracking, message log, and the
// read-position/alias documents every realm carries.
type Realm struct {
	ID   ids.RealmId
	Kind Kind
	Self ids.MemberId

	mu        sync.RWMutex
	state     State
	structMem map[ids.MemberId]struct{} // fixed set for peer-set realms; nil for general
	presence  map[ids.MemberId]*presenceState

	ReadPositions *crdt.Document[ids.MemberId, uint64]
	Aliases       *crdt.Document[ids.MemberId, string]

	msgOnce sync.Once
	msg     *messageState
}

// NewPeerSetRealm builds the realm for a fixed, structural member set.
// The realm's ID is derived from the member set itself (I5): any two
// members independently compute the same ID.
func NewPeerSetRealm(self ids.MemberId, members []ids.MemberId) *Realm {
	structMem := make(map[ids.MemberId]struct{}, len(members))
	for _, m := range members {
		structMem[m] = struct{}{}
	}
	return newRealm(ids.ComputePeerRealm(members), KindPeerSet, self, structMem)
}

// NewGeneralRealm builds a realm with no fixed membership: whoever
// heartbeats is admitted.
func NewGeneralRealm(id ids.RealmId, self ids.MemberId) *Realm {
	return newRealm(id, KindGeneral, self, nil)
}

func newRealm(id ids.RealmId, kind Kind, self ids.MemberId, structMem map[ids.MemberId]struct{}) *Realm {
	return &Realm{
		ID:            id,
		Kind:          kind,
		Self:          self,
		state:         StateJoining,
		structMem:     structMem,
		presence:      make(map[ids.MemberId]*presenceState),
		ReadPositions: crdt.NewDocument[ids.MemberId, uint64](crdt.MonotonicMaxUint64[ids.MemberId](), crdt.SelfWrite()),
		Aliases:       crdt.NewDocument[ids.MemberId, string](crdt.LWW[ids.MemberId, string](), crdt.SelfWrite()),
	}
}

// State returns the realm's current lifecycle state.
func (r *Realm) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Activate transitions Joining -> Active once key material is installed
// and the first heartbeat has been sent.
func (r *Realm) Activate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateJoining {
		r.state = StateActive
	}
}

// IsStructuralMember reports whether member is part of a peer-set
// realm's fixed membership. Always true for general realms (there is no
// fixed set to check against).
func (r *Realm) IsStructuralMember(member ids.MemberId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Kind == KindGeneral {
		return true
	}
	_, ok := r.structMem[member]
	return ok
}

// IsMember reports whether member is currently admitted, whether by
// fixed structure (peer-set) or by presence admission (general).
func (r *Realm) IsMember(member ids.MemberId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Kind == KindPeerSet {
		_, ok := r.structMem[member]
		return ok
	}
	p, ok := r.presence[member]
	return ok && p.admitted
}

// RecordHeartbeat processes a heartbeat from member, returning the
// MemberEvents it produces (Discovered on first sight, Joined on
// admission, Updated on every subsequent heartbeat from an admitted
// member). A heartbeat from a peer that is not — and for a peer-set realm
// can never become — a structural member is recorded for bookkeeping but
// never admitted.
func (r *Realm) RecordHeartbeat(member ids.MemberId, now time.Time) []MemberEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, existed := r.presence[member]
	if !existed {
		events := []MemberEvent{{Kind: EventDiscovered, Realm: r.ID, Member: member, At: now}}
		admit := r.Kind == KindGeneral
		if r.Kind == KindPeerSet {
			_, admit = r.structMem[member]
		}
		r.presence[member] = &presenceState{lastHeartbeat: now, admitted: admit}
		if admit {
			events = append(events, MemberEvent{Kind: EventJoined, Realm: r.ID, Member: member, At: now})
		}
		return events
	}

	p.lastHeartbeat = now
	if !p.admitted {
		return nil
	}
	return []MemberEvent{{Kind: EventUpdated, Realm: r.ID, Member: member, At: now}}
}

// Online reports whether member has heartbeated within
// OnlineMultiplier*HeartbeatInterval of now.
func (r *Realm) Online(member ids.MemberId, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presence[member]
	if !ok {
		return false
	}
	return now.Sub(p.lastHeartbeat) <= HeartbeatInterval*OnlineMultiplier
}

// Leave transitions this replica's view of the realm to Leaving: local
// subscriptions should be torn down and heartbeating stopped. It never
// touches other members' state — a peer-set realm's membership is fixed
// by its ID (I5), and a general realm's other members are unaffected by
// one member's departure.
func (r *Realm) Leave(now time.Time) (MemberEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateLeaving {
		return MemberEvent{}, errs.New("realm.Leave", errs.InvalidOperation, nil)
	}
	r.state = StateLeaving
	delete(r.presence, r.Self)
	return MemberEvent{Kind: EventLeft, Realm: r.ID, Member: r.Self, At: now}, nil
}

// SetAlias sets self's own alias within this realm. Only self may call
// this for its own MemberId — crdt.SelfWrite enforces it.
func (r *Realm) SetAlias(self ids.MemberId, alias string) error {
	_, err := r.Aliases.Update(self, self, func(string, bool) string { return alias })
	return err
}

// AdvanceReadPosition records that self has read up through position.
// Monotonic-max merge means this can never roll self's progress back.
func (r *Realm) AdvanceReadPosition(self ids.MemberId, position uint64) error {
	_, err := r.ReadPositions.Update(self, self, func(old uint64, existed bool) uint64 {
		if existed && old > position {
			return old
		}
		return position
	})
	return err
}
