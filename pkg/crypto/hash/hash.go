// Package hash implements the hash primitives used throughout the core:
// double SHA-256 for block/transaction identity, SHA256+RIPEMD160 for
// script hashes, and Merkle tree construction.
package hash

import (
	"crypto/sha256"
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // matches the teacher's RIPEMD160 choice
)

// Hashable is implemented by types that can be hashed for signing/identity
// purposes (transactions, blocks, witnesses-to-be-verified).
type Hashable interface {
	// HashableData returns the byte sequence that should be hashed,
	// excluding any witness/signature data.
	HashableData() []byte
}

// Sha256 computes a single SHA-256 digest.
func Sha256(b []byte) util.Uint256 {
	h := sha256.Sum256(b)
	return util.Uint256(h)
}

// DoubleSha256 computes SHA-256(SHA-256(b)), the hash used for block and
// transaction identity.
func DoubleSha256(b []byte) util.Uint256 {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return util.Uint256(h2)
}

// RipeMD160 computes a RIPEMD160 digest.
func RipeMD160(b []byte) (h [20]byte) {
	hasher := ripemd160.New()
	_, _ = hasher.Write(b)
	copy(h[:], hasher.Sum(nil))
	return h
}

// Hash160 computes RIPEMD160(SHA256(b)), the script-hash function used to
// derive a UInt160 contract/account identity from a script.
func Hash160(b []byte) util.Uint160 {
	sh := sha256.Sum256(b)
	return util.Uint160(RipeMD160(sh[:]))
}

// CalcHash computes the double-SHA256 hash of h's hashable data, the
// identity hash used for blocks and transactions.
func CalcHash(h Hashable) util.Uint256 {
	return DoubleSha256(h.HashableData())
}

// ErrEmptyInput is returned by MerkleRoot on an empty input.
var ErrEmptyInput = errors.New("empty input to Merkle tree")

// MerkleRoot computes the canonical Merkle root over a list of leaf
// hashes using the double-SHA256 pairwise reduction, duplicating the last
// node when a level has an odd count.
func MerkleRoot(hashes []util.Uint256) (util.Uint256, error) {
	if len(hashes) == 0 {
		return util.Uint256{}, ErrEmptyInput
	}
	level := make([]util.Uint256, len(hashes))
	copy(level, hashes)
	for len(level) > 1 {
		next := make([]util.Uint256, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			var right util.Uint256
			if i+1 < len(level) {
				right = level[i+1]
			} else {
				right = level[i]
			}
			buf := make([]byte, 0, 64)
			buf = append(buf, level[i].BytesLE()...)
			buf = append(buf, right.BytesLE()...)
			next = append(next, DoubleSha256(buf))
		}
		level = next
	}
	return level[0], nil
}
