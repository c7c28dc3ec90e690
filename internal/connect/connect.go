// Package connect implements spec.md §4.7's direct-connect protocol:
// contacting a previously-unknown peer by MemberId through their inbox
// realm, with a deterministic tie-break over who initiates the KEM
// handshake.
package connect

import (
	"bytes"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// InboxTopic is the realm a ConnectionNotify is sent to: the recipient's
// deterministic inbox realm.
func InboxTopic(recipient ids.MemberId) ids.RealmId { return ids.InboxRealm(recipient) }

// IsInitiator breaks the handshake tie symmetrically: exactly one of
// IsInitiator(a,b), IsInitiator(b,a) is true for a != b (spec.md §8
// property 2). Byte comparison needs no shared clock or coordination.
func IsInitiator(self, other ids.MemberId) bool {
	return bytes.Compare(self[:], other[:]) > 0
}

// ConnectionNotify is the unsolicited-contact message sent to a peer's
// inbox realm, carrying the keys needed to bootstrap a KEM handshake.
type ConnectionNotify struct {
	From             ids.MemberId
	SigningPublicKey []byte
	KEMPublicKey     []byte
	Timestamp        int64
}

// Phase is a connection attempt's position in the handshake.
type Phase int

const (
	PhaseNotifySent Phase = iota
	PhaseAwaitingEncapsulation // responder: waiting for the initiator's first encapsulation
	PhaseEncapsulating         // initiator: proceeding with the KEM handshake
	PhaseEstablished
	PhaseFailed
)

// Attempt tracks one in-flight direct-connect handshake with a specific
// peer.
type Attempt struct {
	Self, Peer ids.MemberId
	Initiator  bool
	Phase      Phase
}

// NewAttempt starts a direct-connect attempt toward peer, computing which
// side initiates.
func NewAttempt(self, peer ids.MemberId) *Attempt {
	a := &Attempt{Self: self, Peer: peer, Initiator: IsInitiator(self, peer)}
	if a.Initiator {
		a.Phase = PhaseEncapsulating
	} else {
		a.Phase = PhaseAwaitingEncapsulation
	}
	return a
}

// ReceiveEncapsulation advances a responder's attempt once the
// initiator's first KEM encapsulation arrives. Calling this on an
// initiator's own attempt (which never waits for one) is a caller bug.
func (a *Attempt) ReceiveEncapsulation() error {
	if a.Initiator {
		return errs.New("connect.ReceiveEncapsulation", errs.InvalidOperation, nil)
	}
	if a.Phase != PhaseAwaitingEncapsulation {
		return errs.New("connect.ReceiveEncapsulation", errs.InvalidOperation, nil)
	}
	a.Phase = PhaseEstablished
	return nil
}

// CompleteEncapsulation advances an initiator's attempt once its
// encapsulation has been sent and acknowledged.
func (a *Attempt) CompleteEncapsulation() error {
	if !a.Initiator {
		return errs.New("connect.CompleteEncapsulation", errs.InvalidOperation, nil)
	}
	if a.Phase != PhaseEncapsulating {
		return errs.New("connect.CompleteEncapsulation", errs.InvalidOperation, nil)
	}
	a.Phase = PhaseEstablished
	return nil
}

// Fail marks the attempt failed, e.g. on handshake timeout.
func (a *Attempt) Fail() { a.Phase = PhaseFailed }

// DMRealm derives the resulting direct-message realm for this pair: a
// successful handshake always crystallizes into the same symmetric realm
// regardless of which side initiated.
func (a *Attempt) DMRealm() ids.RealmId { return ids.DMStoryID(a.Self, a.Peer) }
