// Package wire implements the on-the-wire encodings from spec.md §6:
// bech32m identity/invite codes and the RLP-encoded message envelope and
// sync payload. RLP is used for the same reason the teacher reaches for it
// for block/header encoding: deterministic, canonical, and already a
// transitive dependency of this module's ethereum-derived stack.
package wire

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/indranet/indra/internal/errs"
)

// Envelope is the outer wire frame for every realm message: sender
// identity, an ML-DSA-65 signature (treated as an opaque byte blob — the
// concrete post-quantum primitive is out of scope for this module), the
// ChaCha20-Poly1305-encrypted payload, and a content type discriminator.
type Envelope struct {
	Sender           [32]byte
	Signature        []byte
	PayloadEncrypted []byte
	ContentTypeID    uint32
}

// EncodeEnvelope serializes e for transport.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	b, err := rlp.EncodeToBytes(&e)
	if err != nil {
		return nil, errs.New("wire.EncodeEnvelope", errs.Serialization, err)
	}
	return b, nil
}

// DecodeEnvelope parses an envelope previously produced by EncodeEnvelope.
// Malformed bytes are reported as errs.Serialization, not
// errs.SyncPayloadInvalid — an envelope failure is a transport concern,
// distinct from a sync payload failing to apply.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := rlp.DecodeBytes(b, &e); err != nil {
		return Envelope{}, errs.New("wire.DecodeEnvelope", errs.Serialization, err)
	}
	return e, nil
}

// SyncPayload is the CRDT incremental-sync wire format: the changes a
// sender believes the recipient hasn't seen, plus the heads the sender is
// declaring as of this payload so the recipient's tracker can be updated.
type SyncPayload struct {
	ArtifactID    []byte
	Sender        [32]byte
	Changes       [][]byte
	DeclaredHeads [][]byte
}

// EncodeSyncPayload serializes p for transport.
func EncodeSyncPayload(p SyncPayload) ([]byte, error) {
	b, err := rlp.EncodeToBytes(&p)
	if err != nil {
		return nil, errs.New("wire.EncodeSyncPayload", errs.Serialization, err)
	}
	return b, nil
}

// DecodeSyncPayload parses a payload previously produced by
// EncodeSyncPayload. Per spec.md §4.2/§7, a malformed payload is reported
// as errs.SyncPayloadInvalid so callers drop-with-warning instead of
// propagating a transport-level failure.
func DecodeSyncPayload(b []byte) (SyncPayload, error) {
	var p SyncPayload
	if err := rlp.DecodeBytes(b, &p); err != nil {
		return SyncPayload{}, errs.New("wire.DecodeSyncPayload", errs.SyncPayloadInvalid, err)
	}
	return p, nil
}
