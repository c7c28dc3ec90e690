// Package artifact implements the spec.md §4.4 blob store, index, and
// access-control engine: content-addressed blob storage below, a
// single-document authority (the owner's home-realm ArtifactIndex) for
// status/grants/tree links above.
package artifact

import (
	"crypto/rand"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/indranet/indra/internal/errs"
)

// Kind discriminates the two ArtifactId variants from spec.md §3.
type Kind uint8

const (
	// KindBlob artifacts are content-addressed: two identical files
	// share an id.
	KindBlob Kind = iota
	// KindDoc artifacts are generated at creation and never reused.
	KindDoc
)

// ID is the tagged-union ArtifactId: Blob(32-byte content hash) or
// Doc(32-byte derived id). It is a plain comparable struct so it can be
// used directly as a crdt.Document key.
type ID struct {
	Kind  Kind
	Value [32]byte
}

// BlobID derives the content-addressed id for data, wrapping a CIDv1 the
// same way the teacher's storage gateway computes a deterministic
// pin-address: a SHA2-256 multihash fed through cid.NewCidV1(cid.Raw, ...).
// The CID's digest bytes become the fixed-size ArtifactId value; the
// Store keys on-disk blob paths by the hex encoding of that value.
func BlobID(data []byte) (ID, cid.Cid, error) {
	digest, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return ID{}, cid.Undef, errs.New("artifact.BlobID", errs.Crypto, err)
	}
	c := cid.NewCidV1(cid.Raw, digest)
	decoded, err := mh.Decode(digest)
	if err != nil {
		return ID{}, cid.Undef, errs.New("artifact.BlobID", errs.Crypto, err)
	}
	var id ID
	id.Kind = KindBlob
	copy(id.Value[:], decoded.Digest)
	return id, c, nil
}

// NewDocID generates a fresh, never-reused Doc-kind ArtifactId.
func NewDocID() (ID, error) {
	var id ID
	id.Kind = KindDoc
	if _, err := rand.Read(id.Value[:]); err != nil {
		return ID{}, errs.New("artifact.NewDocID", errs.Crypto, err)
	}
	return id, nil
}
