package wire

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/indranet/indra/internal/ids"
)

// IdentityHRP is the bech32m human-readable prefix for identity codes.
const IdentityHRP = "indra"

// EncodeIdentityCode renders a MemberId as a bech32m identity code.
func EncodeIdentityCode(m ids.MemberId) (string, error) {
	return EncodeM(IdentityHRP, m[:])
}

// DecodeIdentityCode parses a bech32m identity code back into a MemberId.
func DecodeIdentityCode(code string) (ids.MemberId, error) {
	hrp, data, err := DecodeM(code)
	if err != nil {
		return ids.MemberId{}, err
	}
	if hrp != IdentityHRP {
		return ids.MemberId{}, fmt.Errorf("wire: unexpected identity hrp %q", hrp)
	}
	if len(data) != ids.Size {
		return ids.MemberId{}, fmt.Errorf("wire: identity payload is %d bytes, want %d", len(data), ids.Size)
	}
	var m ids.MemberId
	copy(m[:], data)
	return m, nil
}

// IdentityURI is the parsed form of an "indra://<code>[?name=<display>]" URI.
type IdentityURI struct {
	Code        string
	DisplayName string
}

// FormatIdentityURI renders the URI form of an identity code.
func FormatIdentityURI(m ids.MemberId, displayName string) (string, error) {
	code, err := EncodeIdentityCode(m)
	if err != nil {
		return "", err
	}
	u := "indra://" + code
	if displayName != "" {
		u += "?name=" + url.QueryEscape(displayName)
	}
	return u, nil
}

// ParseIdentityURI parses an "indra://..." URI into its code and optional
// display name.
func ParseIdentityURI(raw string) (IdentityURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return IdentityURI{}, fmt.Errorf("wire: parse identity uri: %w", err)
	}
	if u.Scheme != "indra" {
		return IdentityURI{}, fmt.Errorf("wire: unexpected scheme %q", u.Scheme)
	}
	code := u.Host
	if code == "" {
		code = strings.TrimPrefix(u.Opaque, "")
	}
	if code == "" {
		return IdentityURI{}, fmt.Errorf("wire: identity uri missing code")
	}
	return IdentityURI{Code: code, DisplayName: u.Query().Get("name")}, nil
}
