package util

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Uint256Size is the size of Uint256 in bytes.
const Uint256Size = 32

// Uint256 is a 32-byte long unsigned integer, used for block and
// transaction hashes and for Merkle roots.
type Uint256 [Uint256Size]byte

// Uint256DecodeBytesBE attempts to decode the given big-endian bytes into Uint256.
func Uint256DecodeBytesBE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint256Size, len(b))
	}
	for i, v := range b {
		u[Uint256Size-i-1] = v
	}
	return u, nil
}

// Uint256DecodeBytesLE attempts to decode the given little-endian bytes into Uint256.
func Uint256DecodeBytesLE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected %d bytes, got %d", Uint256Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// Uint256DecodeStringLE attempts to decode the given little-endian string into Uint256.
func Uint256DecodeStringLE(s string) (u Uint256, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint256DecodeBytesLE(b)
}

// BytesBE returns a big-endian byte representation of u.
func (u Uint256) BytesBE() []byte {
	b := make([]byte, Uint256Size)
	for i := 0; i < Uint256Size; i++ {
		b[i] = u[Uint256Size-i-1]
	}
	return b
}

// BytesLE returns a little-endian byte representation of u.
func (u Uint256) BytesLE() []byte {
	b := make([]byte, Uint256Size)
	copy(b, u[:])
	return b
}

// StringLE returns a big-endian hex string of u, as conventionally
// displayed for block/transaction hashes.
func (u Uint256) StringLE() string {
	return hex.EncodeToString(u.BytesBE())
}

// Equals returns true iff u == v.
func (u Uint256) Equals(v Uint256) bool {
	return u == v
}

// Less returns true iff u is less than v under big-endian total order.
func (u Uint256) Less(v Uint256) bool {
	return bytes.Compare(u.BytesBE(), v.BytesBE()) < 0
}

// IsZero returns true iff u is the zero value.
func (u Uint256) IsZero() bool {
	return u == Uint256{}
}
