// Package encounter implements spec.md §4.7's time-windowed short-code
// discovery: two participants who speak a 6-digit code derive the same
// gossip topic for roughly one minute, exchange keys over it, and
// crystallize the relationship into a DM realm via Introduce.
package encounter

import (
	"time"

	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// Topics returns the current and immediately-previous minute-window
// topics for code, tolerating clock skew between participants.
func Topics(code string, now time.Time) (current, previous ids.RealmId) {
	return ids.EncounterTopics(code, now)
}

// IsValid reports whether topic is a valid derivation of code as observed
// at now.
func IsValid(code string, topic ids.RealmId, now time.Time) bool {
	return ids.IsValidEncounterTopic(code, topic, now)
}

// Session is one side's view of an in-progress encounter: the code
// spoken, the topic it's subscribed to, and whatever the peer has
// revealed so far.
type Session struct {
	Code  string
	Topic ids.RealmId

	Peer           *ids.MemberId
	PeerSigningKey []byte
	PeerKEMKey     []byte
}

// NewSession begins a session for code at the current window.
func NewSession(code string, now time.Time) *Session {
	topic, _ := Topics(code, now)
	return &Session{Code: code, Topic: topic}
}

// ReceiveKeys records the peer's identity and keys once exchanged over
// the encounter topic.
func (s *Session) ReceiveKeys(peer ids.MemberId, signingKey, kemKey []byte) {
	s.Peer = &peer
	s.PeerSigningKey = signingKey
	s.PeerKEMKey = kemKey
}

// Introduce derives the shared DM realm id for the encounter once keys
// have been exchanged, identical regardless of which side calls Introduce
// first. It does not touch the contacts document or join the realm.
func (s *Session) Introduce(self ids.MemberId) (ids.RealmId, error) {
	if s.Peer == nil {
		return ids.RealmId{}, errs.New("encounter.Introduce", errs.InvalidOperation, nil)
	}
	return ids.DMStoryID(self, *s.Peer), nil
}
