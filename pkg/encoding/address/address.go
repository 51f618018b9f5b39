// Package address implements the Base58Check address<->script-hash
// round trip Neo N3 uses for human-facing account identifiers (spec.md
// §6 "Address format", §8 "toAddress(toScriptHash(a), version) = a").
package address

import (
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"

	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// NEO3Prefix is the default Neo N3 address version byte, yielding the
// familiar "N..." addresses.
const NEO3Prefix byte = 53

// ErrInvalidChecksum is returned by StringToUint160 when the decoded
// payload's trailing checksum doesn't match.
var ErrInvalidChecksum = errors.New("invalid address checksum")

// ErrInvalidLength is returned when a decoded address payload isn't
// exactly 1 (version) + 20 (script hash) + 4 (checksum) bytes.
var ErrInvalidLength = errors.New("invalid address length")

// checksum returns the first 4 bytes of double-SHA256(payload), the
// Base58Check trailer.
func checksum(payload []byte) []byte {
	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

// Uint160ToString encodes a script hash into its Base58Check address
// form under the given version byte.
func Uint160ToString(u util.Uint160, version byte) string {
	b := make([]byte, 0, 25)
	b = append(b, version)
	b = append(b, u.BytesBE()...)
	b = append(b, checksum(b)...)
	return base58.Encode(b)
}

// StringToUint160 decodes a Base58Check address back into its script
// hash, verifying both the version byte and the checksum.
func StringToUint160(s string, version byte) (util.Uint160, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return util.Uint160{}, err
	}
	if len(b) != 25 {
		return util.Uint160{}, ErrInvalidLength
	}
	if b[0] != version {
		return util.Uint160{}, errors.New("address version mismatch")
	}
	payload, sum := b[:21], b[21:]
	want := checksum(payload)
	for i := range want {
		if want[i] != sum[i] {
			return util.Uint160{}, ErrInvalidChecksum
		}
	}
	return util.Uint160DecodeBytesBE(payload[1:])
}
