// Package util contains fixed-size byte array types shared across the
// node: 160- and 256-bit hashes used for script hashes, block hashes and
// transaction identifiers.
package util

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// Uint160Size is the size of Uint160 in bytes.
const Uint160Size = 20

// Uint160 is a 20-byte long unsigned integer. Neo uses it for script
// hashes, stored and compared in little-endian form.
type Uint160 [Uint160Size]byte

// Uint160DecodeBytesBE attempts to decode the given big-endian bytes into Uint160.
func Uint160DecodeBytesBE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint160Size, len(b))
	}
	for i, v := range b {
		u[Uint160Size-i-1] = v
	}
	return u, nil
}

// Uint160DecodeStringLE attempts to decode the given little-endian string into Uint160.
func Uint160DecodeStringLE(s string) (u Uint160, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// BytesBE returns a big-endian byte representation of u.
func (u Uint160) BytesBE() []byte {
	b := make([]byte, Uint160Size)
	for i := 0; i < Uint160Size; i++ {
		b[i] = u[Uint160Size-i-1]
	}
	return b
}

// BytesLE returns a little-endian byte representation of u.
func (u Uint160) BytesLE() []byte {
	b := make([]byte, Uint160Size)
	copy(b, u[:])
	return b
}

// StringLE returns a big-endian hex string of u.
func (u Uint160) StringLE() string {
	return hex.EncodeToString(u.BytesBE())
}

// StringLE0x returns a big-endian hex string of u prefixed with 0x.
func (u Uint160) StringLE0x() string {
	return "0x" + u.StringLE()
}

// Equals returns true iff u == v.
func (u Uint160) Equals(v Uint160) bool {
	return u == v
}

// Less returns true iff u is less than v under big-endian total order.
func (u Uint160) Less(v Uint160) bool {
	return bytes.Compare(u.BytesBE(), v.BytesBE()) < 0
}

// IsZero returns true iff u is the zero value.
func (u Uint160) IsZero() bool {
	return u == Uint160{}
}

var errInvalidUint160Length = errors.New("invalid Uint160 length")

// Uint160DecodeBytesLE decodes a little-endian byte slice into a Uint160.
func Uint160DecodeBytesLE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, errInvalidUint160Length
	}
	copy(u[:], b)
	return u, nil
}
