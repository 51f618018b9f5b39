// Package cryptosys implements the System.Crypto.* syscall family:
// signature verification against the transaction/script's signed data
// (spec.md §4.2, GLOSSARY "Witness verification").
package cryptosys

import (
	"crypto/elliptic"

	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
)

// CheckSig implements System.Crypto.CheckSig: true iff signature is a
// valid signature by pubkey over message.
func CheckSig(pubkey, signature, message []byte) bool {
	p, err := keys.NewPublicKeyFromBytes(pubkey, elliptic.P256())
	if err != nil {
		return false
	}
	return p.Verify(signature, message)
}

// CheckMultisig implements System.Crypto.CheckMultisig: true iff every
// signature in order matches some remaining prefix of pubkeys, the
// standard "signatures and keys both ascending, greedily matched"
// multisig check (spec.md §4.2 "CheckMultisig").
func CheckMultisig(pubkeys [][]byte, signatures [][]byte, message []byte) bool {
	if len(signatures) == 0 || len(signatures) > len(pubkeys) {
		return false
	}
	keyIdx, sigIdx := 0, 0
	for sigIdx < len(signatures) && keyIdx < len(pubkeys) {
		p, err := keys.NewPublicKeyFromBytes(pubkeys[keyIdx], elliptic.P256())
		if err == nil && p.Verify(signatures[sigIdx], message) {
			sigIdx++
		}
		keyIdx++
		if len(signatures)-sigIdx > len(pubkeys)-keyIdx {
			return false
		}
	}
	return sigIdx == len(signatures)
}
