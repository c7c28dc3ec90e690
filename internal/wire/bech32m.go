package wire

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32m checksum constant per BIP-350.
const bech32mConst = 0x2bc830a3

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func polymod(values []int) int {
	gen := [5]int{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := 1
	for _, v := range values {
		b := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ v
		for i := 0; i < 5; i++ {
			if (b>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []int {
	out := make([]int, 0, len(hrp)*2+1)
	for _, c := range hrp {
		out = append(out, int(c)>>5)
	}
	out = append(out, 0)
	for _, c := range hrp {
		out = append(out, int(c)&31)
	}
	return out
}

func createChecksum(hrp string, data []int) []int {
	values := append(append(hrpExpand(hrp), data...), 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ bech32mConst
	ret := make([]int, 6)
	for i := 0; i < 6; i++ {
		ret[i] = (mod >> uint(5*(5-i))) & 31
	}
	return ret
}

func verifyChecksum(hrp string, data []int) bool {
	return polymod(append(hrpExpand(hrp), data...)) == bech32mConst
}

// EncodeM encodes an arbitrary byte payload as bech32m with the given
// human-readable prefix, per BIP-350. Bit-group conversion is delegated to
// btcutil/bech32.ConvertBits; the checksum itself is computed here since
// this module's vendored btcutil predates its own bech32m helpers.
func EncodeM(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32m: convert bits: %w", err)
	}
	values := make([]int, len(conv))
	for i, b := range conv {
		values[i] = int(b)
	}
	checksum := createChecksum(hrp, values)
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range append(values, checksum...) {
		sb.WriteByte(charset[v])
	}
	return sb.String(), nil
}

// DecodeM decodes a bech32m string, verifying the checksum, and returns
// the human-readable prefix and original byte payload.
func DecodeM(s string) (hrp string, data []byte, err error) {
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return "", nil, fmt.Errorf("bech32m: mixed case string %q", s)
	}
	lower := strings.ToLower(s)
	pos := strings.LastIndex(lower, "1")
	if pos < 1 || pos+7 > len(lower) {
		return "", nil, fmt.Errorf("bech32m: invalid separator position in %q", s)
	}
	hrp = lower[:pos]
	dataPart := lower[pos+1:]
	values := make([]int, len(dataPart))
	for i, c := range dataPart {
		idx := strings.IndexRune(charset, c)
		if idx < 0 {
			return "", nil, fmt.Errorf("bech32m: invalid character %q", c)
		}
		values[i] = idx
	}
	if !verifyChecksum(hrp, values) {
		return "", nil, fmt.Errorf("bech32m: invalid checksum")
	}
	payload := values[:len(values)-6]
	raw := make([]byte, len(payload))
	for i, v := range payload {
		raw[i] = byte(v)
	}
	decoded, err := bech32.ConvertBits(raw, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("bech32m: convert bits: %w", err)
	}
	return hrp, decoded, nil
}
