package artifact

import (
	"github.com/indranet/indra/internal/ids"
)

// Mode is the spec.md §3 AccessMode: Revocable | Permanent | Timed | Transfer.
type Mode uint8

const (
	ModeRevocable Mode = iota
	ModePermanent
	ModeTimed
	ModeTransfer
)

// Status is a HomeArtifactEntry's lifecycle state.
type Status uint8

const (
	StatusActive Status = iota
	StatusRecalled
	StatusExpired
	StatusTransferred
)

// ProvenanceKind discriminates how this node came to own an artifact.
type ProvenanceKind uint8

const (
	ProvenanceOriginal ProvenanceKind = iota
	ProvenanceReceived
	ProvenanceImported
)

// Provenance records where an artifact entry came from.
type Provenance struct {
	Kind           ProvenanceKind
	OriginalAuthor ids.MemberId
	Timestamp      int64
}

// Grant is a per-member permission record. Expiry is meaningful only when
// Mode == ModeTimed. SealedKey is the artifact's symmetric key re-sealed
// to this grantee's KEM public key (spec.md §4.4 "Key material"); it is
// nil until a Reseal function has been supplied to produce it.
type Grant struct {
	Mode      Mode
	GrantedAt int64
	GrantedBy ids.MemberId
	Expiry    int64
	HasExpiry bool
	SealedKey []byte
}

// Valid reports whether g is usable access at t: a Timed grant must not
// have expired (spec.md §8 property 6); every other mode is always valid
// once present.
func (g Grant) Valid(t int64) bool {
	if g.Mode == ModeTimed && g.HasExpiry && t > g.Expiry {
		return false
	}
	return true
}

// GrantEntry pairs a grantee with their Grant record. HomeArtifactEntry
// stores grants as a slice (rather than a map) so the entry stays
// RLP-encodable for the CRDT document layer.
type GrantEntry struct {
	Member ids.MemberId
	Grant  Grant
}

// Entry is the spec.md §3 HomeArtifactEntry: everything the owner's index
// tracks about one owned artifact.
type Entry struct {
	ID           ID
	Name         string
	MimeType     string
	Size         int64
	CreatedAt    int64
	EncryptedKey []byte
	Status       Status
	Grants       []GrantEntry
	Provenance   Provenance
	Parent       ID
	HasParent    bool
}

// GrantFor returns the grant recorded for member, if any.
func (e Entry) GrantFor(member ids.MemberId) (Grant, bool) {
	for _, g := range e.Grants {
		if g.Member == member {
			return g.Grant, true
		}
	}
	return Grant{}, false
}

// withGrant returns a copy of e with member's grant set to g, replacing any
// existing record.
func (e Entry) withGrant(member ids.MemberId, g Grant) Entry {
	out := e
	out.Grants = make([]GrantEntry, 0, len(e.Grants)+1)
	replaced := false
	for _, existing := range e.Grants {
		if existing.Member == member {
			out.Grants = append(out.Grants, GrantEntry{Member: member, Grant: g})
			replaced = true
			continue
		}
		out.Grants = append(out.Grants, existing)
	}
	if !replaced {
		out.Grants = append(out.Grants, GrantEntry{Member: member, Grant: g})
	}
	return out
}

// withoutGrant returns a copy of e with member's grant removed.
func (e Entry) withoutGrant(member ids.MemberId) Entry {
	out := e
	out.Grants = make([]GrantEntry, 0, len(e.Grants))
	for _, existing := range e.Grants {
		if existing.Member == member {
			continue
		}
		out.Grants = append(out.Grants, existing)
	}
	return out
}

// withoutNonPermanentGrants returns a copy of e with every grant whose mode
// is not Permanent removed (spec.md I2: recall clears Revocable/Timed).
func (e Entry) withoutNonPermanentGrants() Entry {
	out := e
	out.Grants = make([]GrantEntry, 0, len(e.Grants))
	for _, existing := range e.Grants {
		if existing.Grant.Mode == ModePermanent {
			out.Grants = append(out.Grants, existing)
		}
	}
	return out
}
