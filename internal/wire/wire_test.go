package wire

import (
	"bytes"
	"testing"

	"github.com/indranet/indra/internal/ids"
)

func TestIdentityCodeRoundTrip(t *testing.T) {
	var m ids.MemberId
	for i := range m {
		m[i] = byte(i)
	}
	code, err := EncodeIdentityCode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeIdentityCode(code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("round trip mismatch: got %x want %x", got, m)
	}
}

func TestIdentityURIRoundTrip(t *testing.T) {
	var m ids.MemberId
	m[0] = 0xAB
	u, err := FormatIdentityURI(m, "Ada")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	parsed, err := ParseIdentityURI(u)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.DisplayName != "Ada" {
		t.Fatalf("expected display name Ada, got %q", parsed.DisplayName)
	}
	got, err := DecodeIdentityCode(parsed.Code)
	if err != nil {
		t.Fatalf("decode embedded code: %v", err)
	}
	if got != m {
		t.Fatalf("embedded code mismatch")
	}
}

func TestInviteRoundTrip(t *testing.T) {
	var topic ids.RealmId
	topic[1] = 7
	inv := Invite{RealmTopic: topic, ArtifactID: []byte{1, 2, 3}}
	code, err := EncodeInvite(inv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeInvite(code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RealmTopic != topic {
		t.Fatalf("topic mismatch")
	}
	if !bytes.Equal(got.ArtifactID, inv.ArtifactID) {
		t.Fatalf("artifact id mismatch")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	e := Envelope{Signature: []byte("sig"), PayloadEncrypted: []byte("ciphertext"), ContentTypeID: 3}
	e.Sender[0] = 9
	b, err := EncodeEnvelope(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEnvelope(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Sender != e.Sender || got.ContentTypeID != e.ContentTypeID {
		t.Fatalf("envelope mismatch: %+v vs %+v", got, e)
	}
	if !bytes.Equal(got.Signature, e.Signature) || !bytes.Equal(got.PayloadEncrypted, e.PayloadEncrypted) {
		t.Fatalf("envelope payload mismatch")
	}
}

func TestDecodeSyncPayloadInvalid(t *testing.T) {
	_, err := DecodeSyncPayload([]byte{0xff, 0x00})
	if err == nil {
		t.Fatalf("expected error decoding garbage bytes")
	}
}
