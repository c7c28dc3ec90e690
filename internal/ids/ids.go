// Package ids is a pure, stateless derivation layer: every exported
// function is a total function from inputs to a 32-byte id. Inputs are
// validated upstream, so nothing here returns an error.
package ids

import (
	"bytes"
	"encoding/binary"
	"sort"
	"time"

	"lukechampine.com/blake3"
)

// Size is the byte length of every id produced by this package.
const Size = 32

// MemberId is a 32-byte public-key fingerprint; the canonical identifier
// for an identity everywhere in the system.
type MemberId [Size]byte

// RealmId is a 32-byte realm topic, either random (general realms) or one
// of the deterministic derivations below.
type RealmId [Size]byte

// EncounterWindowSeconds is the width of an encounter code's validity
// window; a code is checked against the current window and the one
// immediately before it to tolerate clock skew up to ~60s.
const EncounterWindowSeconds = 60

// domainHash hashes domain followed by each part, length-prefixed, using a
// domain-separated BLAKE3 digest.
func domainHash(domain string, parts ...[]byte) [Size]byte {
	var buf bytes.Buffer
	buf.WriteString(domain)
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		buf.Write(lenBuf[:])
		buf.Write(p)
	}
	return blake3.Sum256(buf.Bytes())
}

// canonicalizeMembers sorts and deduplicates a member set so that any two
// peers independently computing a peer-set realm arrive at the same bytes
// regardless of the order or repetition in their input slice.
func canonicalizeMembers(members []MemberId) [][]byte {
	seen := make(map[MemberId]struct{}, len(members))
	out := make([][]byte, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		b := make([]byte, Size)
		copy(b, m[:])
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}

// ComputePeerRealm derives the deterministic peer-set realm id for a set
// of members. It is invariant under permutation and duplication of the
// input (I-testable-1).
func ComputePeerRealm(members []MemberId) RealmId {
	return RealmId(domainHash("indras:peerset:", canonicalizeMembers(members)...))
}

// HomeRealm derives the single per-identity home realm id.
func HomeRealm(m MemberId) RealmId {
	return RealmId(domainHash("indras:home:", m[:]))
}

// InboxRealm derives the single per-identity inbox realm id, used to
// receive unsolicited contact.
func InboxRealm(m MemberId) RealmId {
	return RealmId(domainHash("indras:inbox:", m[:]))
}

// DMStoryID derives the symmetric direct-message story id for a pair of
// members: dm_story_id(a,b) == dm_story_id(b,a).
func DMStoryID(a, b MemberId) RealmId {
	lo, hi := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		lo, hi = b, a
	}
	return RealmId(domainHash("indras:dm:", lo[:], hi[:]))
}

func encounterWindow(t time.Time) int64 {
	secs := t.Unix()
	return secs / EncounterWindowSeconds
}

func encounterTopicForWindow(code string, window int64) RealmId {
	var wbuf [8]byte
	binary.BigEndian.PutUint64(wbuf[:], uint64(window))
	return RealmId(domainHash("indras:encounter:", []byte(code), wbuf[:]))
}

// EncounterTopics returns the topic for the current minute window and the
// one immediately before it, so callers can tolerate clock skew between
// the two participants typing the same code.
func EncounterTopics(code string, now time.Time) (current, previous RealmId) {
	w := encounterWindow(now)
	return encounterTopicForWindow(code, w), encounterTopicForWindow(code, w-1)
}

// IsValidEncounterTopic reports whether topic is the current or
// immediately-previous window's derivation of code, as observed at now.
func IsValidEncounterTopic(code string, topic RealmId, now time.Time) bool {
	cur, prev := EncounterTopics(code, now)
	return topic == cur || topic == prev
}
