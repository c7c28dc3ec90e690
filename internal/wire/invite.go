package wire

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/indranet/indra/internal/ids"
)

const invitePrefix = "indra:realm:"

// Invite is the decoded form of an "indra:realm:<base64url-data>" invite
// code: a realm topic plus, for artifact-backed realms, the ArtifactId the
// realm is anchored to.
type Invite struct {
	RealmTopic ids.RealmId
	ArtifactID []byte // nil unless the realm is artifact-backed
}

type inviteWire struct {
	Topic      [32]byte
	ArtifactID []byte
}

// EncodeInvite renders inv as an invite code URI.
func EncodeInvite(inv Invite) (string, error) {
	w := inviteWire{Topic: inv.RealmTopic, ArtifactID: inv.ArtifactID}
	enc, err := rlp.EncodeToBytes(&w)
	if err != nil {
		return "", fmt.Errorf("wire: encode invite: %w", err)
	}
	return invitePrefix + base64.RawURLEncoding.EncodeToString(enc), nil
}

// DecodeInvite parses an invite code URI previously produced by EncodeInvite.
func DecodeInvite(raw string) (Invite, error) {
	if !strings.HasPrefix(raw, invitePrefix) {
		return Invite{}, fmt.Errorf("wire: not an invite code: %q", raw)
	}
	enc := strings.TrimPrefix(raw, invitePrefix)
	data, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return Invite{}, fmt.Errorf("wire: decode invite data: %w", err)
	}
	var w inviteWire
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return Invite{}, fmt.Errorf("wire: decode invite payload: %w", err)
	}
	return Invite{RealmTopic: w.Topic, ArtifactID: w.ArtifactID}, nil
}
