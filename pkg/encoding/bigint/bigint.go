// Package bigint implements the compact variable-length byte encoding
// native contracts use to persist arbitrary-precision integers (account
// balances, vote totals) in storage values (spec.md §3 "StorageItem").
package bigint

import "math/big"

// ToBytes encodes n as two's-complement little-endian bytes, the same
// layout stackitem.BigInteger uses on the wire, so a storage value can
// be pushed straight onto the stack without reinterpretation.
func ToBytes(n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return []byte{}
	}
	bs := n.Bytes() // big-endian magnitude
	out := make([]byte, len(bs))
	for i, b := range bs {
		out[len(bs)-1-i] = b
	}
	if n.Sign() < 0 {
		out = twosComplement(out)
		if out[len(out)-1]&0x80 == 0 {
			out = append(out, 0xff) // keep the sign bit set
		}
	} else if len(out) > 0 && out[len(out)-1]&0x80 != 0 {
		out = append(out, 0) // avoid being misread as negative
	}
	return out
}

// FromBytes decodes a two's-complement little-endian byte slice back
// into a big.Int, the inverse of ToBytes.
func FromBytes(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	negative := b[len(b)-1]&0x80 != 0
	raw := make([]byte, len(b))
	copy(raw, b)
	if negative {
		raw = twosComplement(raw)
	}
	be := make([]byte, len(raw))
	for i, c := range raw {
		be[len(raw)-1-i] = c
	}
	n := new(big.Int).SetBytes(be)
	if negative {
		n.Neg(n)
	}
	return n
}

// twosComplement flips a little-endian magnitude into/out of
// two's-complement representation in place, returning it.
func twosComplement(b []byte) []byte {
	carry := true
	for i := range b {
		b[i] = ^b[i]
		if carry {
			b[i]++
			carry = b[i] == 0
		}
	}
	return b
}
