// Package keys implements the elliptic-curve point type (ECPoint) used for
// Neo public keys, with SEC1 compressed serialization and support for both
// secp256r1 (the default curve, via stdlib crypto/elliptic) and secp256k1
// (via decred's constant-time implementation, used by CryptoLib.verifyWithECDsa).
package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/twmb/murmur3"
)

// checkSigSyscallID is the 4-byte little-endian murmur32 id of
// "System.Crypto.CheckSig", computed once so verification scripts built
// here match the SYSCALL immediates the application engine dispatches on.
var checkSigSyscallID = func() [4]byte {
	h := murmur3.Sum32([]byte("System.Crypto.CheckSig"))
	return [4]byte{byte(h), byte(h >> 8), byte(h >> 16), byte(h >> 24)}
}()

// namedCurve is the minimal interface PublicKey needs from a curve: its
// domain parameters, for point decompression. Both elliptic.P256() and
// Secp256k1 below satisfy it.
type namedCurve interface {
	Params() *elliptic.CurveParams
}

// Secp256k1 carries secp256k1's domain parameters so CryptoLib's
// "secp256k1" named-curve verification path can decompress and compare
// points the same way it does for the default secp256r1 curve; actual
// signature verification is delegated to decred's constant-time
// implementation in verifySecp256k1.
var Secp256k1 namedCurve = &elliptic.CurveParams{
	P:       bigHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"),
	N:       bigHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"),
	B:       bigHex("0000000000000000000000000000000000000000000000000000000000000007"),
	Gx:      bigHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
	Gy:      bigHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8"),
	BitSize: 256,
	Name:    "secp256k1",
}

func bigHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("invalid hex constant: " + s)
	}
	return n
}

// PublicKey represents an ECPoint: a point on a named curve, serialized in
// SEC1 compressed form (33 bytes), or the point at infinity.
type PublicKey struct {
	Curve    namedCurve
	X, Y     *big.Int
	Infinity bool
}

// ErrInvalidSize is returned when a public key byte slice has an
// unexpected length.
var ErrInvalidSize = errors.New("invalid key size")

// NewPublicKeyFromBytes decodes a SEC1-compressed (or infinity/uncompressed)
// public key on the given curve.
func NewPublicKeyFromBytes(b []byte, curve namedCurve) (*PublicKey, error) {
	p := &PublicKey{Curve: curve}
	if err := p.DecodeBytes(b); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeBytes decodes b into p, preserving p.Curve if already set
// (defaults to P256/secp256r1).
func (p *PublicKey) DecodeBytes(b []byte) error {
	if p.Curve == nil {
		p.Curve = elliptic.P256()
	}
	switch {
	case len(b) == 1 && b[0] == 0:
		p.Infinity = true
		p.X, p.Y = nil, nil
		return nil
	case len(b) == 33 && (b[0] == 2 || b[0] == 3):
		return p.decompress(b)
	case len(b) == 65 && b[0] == 4:
		x := new(big.Int).SetBytes(b[1:33])
		y := new(big.Int).SetBytes(b[33:65])
		p.X, p.Y = x, y
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidSize, len(b))
	}
}

func (p *PublicKey) decompress(b []byte) error {
	params := p.Curve.Params()
	x := new(big.Int).SetBytes(b[1:])
	ySq := new(big.Int).Exp(x, big.NewInt(3), params.P)
	threeX := new(big.Int).Mul(x, big.NewInt(3))
	if p.Curve != Secp256k1 {
		ySq.Sub(ySq, threeX)
	}
	ySq.Add(ySq, params.B)
	ySq.Mod(ySq, params.P)

	y := new(big.Int).ModSqrt(ySq, params.P)
	if y == nil {
		return errors.New("invalid compressed point: not on curve")
	}
	if y.Bit(0) != uint(b[0]&1) {
		y.Sub(params.P, y)
	}
	p.X, p.Y = x, y
	return nil
}

// Bytes returns the SEC1 compressed encoding of p (or a single zero byte
// for the point at infinity).
func (p *PublicKey) Bytes() []byte {
	if p == nil || p.Infinity {
		return []byte{0}
	}
	b := make([]byte, 33)
	if p.Y.Bit(0) == 0 {
		b[0] = 2
	} else {
		b[0] = 3
	}
	xb := p.X.Bytes()
	copy(b[33-len(xb):33], xb) // left-pad with zero bytes
	return b
}

// GetScriptHash returns the Hash160 of the verification script that
// checks a signature against this single public key.
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(CreateSignatureRedeemScript(p))
}

// Equal compares two public keys by curve and coordinates.
func (p *PublicKey) Equal(q *PublicKey) bool {
	if p == q {
		return true
	}
	if p == nil || q == nil {
		return false
	}
	if p.Infinity != q.Infinity {
		return false
	}
	if p.Infinity {
		return true
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Cmp provides a deterministic total order over public keys by comparing
// their compressed byte encodings, matching the ordering rule used for
// standby-committee/candidate tie-breaks.
func (p *PublicKey) Cmp(q *PublicKey) int {
	return bytes.Compare(p.Bytes(), q.Bytes())
}

// Verify verifies a raw (r||s) signature over msg, supporting both
// secp256r1 (stdlib) and secp256k1 (decred) curves.
func (p *PublicKey) Verify(signature, msg []byte) bool {
	if len(signature) != 64 {
		return false
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	digest := hash.Sha256(msg)
	if p.Curve == Secp256k1 {
		return verifySecp256k1(p, r, s, digest[:])
	}
	curve, ok := p.Curve.(elliptic.Curve)
	if !ok {
		return false
	}
	pub := &ecdsa.PublicKey{Curve: curve, X: p.X, Y: p.Y}
	return ecdsa.Verify(pub, digest[:], r, s)
}

func verifySecp256k1(p *PublicKey, r, s *big.Int, digest []byte) bool {
	var pubJ secp256k1.PublicKey
	pubJ.X, pubJ.Y = *new(secp256k1.FieldVal), *new(secp256k1.FieldVal)
	pubJ.X.SetByteSlice(p.X.Bytes())
	pubJ.Y.SetByteSlice(p.Y.Bytes())
	var rMod, sMod secp256k1.ModNScalar
	rMod.SetByteSlice(r.Bytes())
	sMod.SetByteSlice(s.Bytes())
	sig := secp256k1.NewSignature(&rMod, &sMod)
	return sig.Verify(digest, &pubJ)
}

// CreateSignatureRedeemScript returns a PUSH(pubkey) SYSCALL(CheckSig)
// verification script for a single-signature account.
func CreateSignatureRedeemScript(p *PublicKey) []byte {
	b := p.Bytes()
	script := make([]byte, 0, len(b)+6)
	script = append(script, 0x0c, byte(len(b))) // PUSHDATA1
	script = append(script, b...)
	script = append(script, 0x41) // SYSCALL
	script = append(script, checkSigSyscallID[:]...)
	return script
}

// PrivateKey is a secp256r1/secp256k1 scalar paired with its public point.
type PrivateKey struct {
	ecdsa.PrivateKey
}

// NewPrivateKey generates a new random private key on secp256r1.
func NewPrivateKey() (*PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: *priv}, nil
}

// PublicKey returns the public counterpart of k.
func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{Curve: k.Curve, X: k.X, Y: k.Y}
}

// Sign produces a deterministic-enough raw (r||s) signature over msg's
// SHA-256 digest. It is not RFC6979-deterministic; determinism of block
// execution does not depend on signature production, only verification.
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	digest := hash.Sha256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, &k.PrivateKey, digest[:])
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 64)
	rb := r.Bytes()
	sb := s.Bytes()
	copy(sig[32-len(rb):32], rb)
	copy(sig[64-len(sb):64], sb)
	return sig, nil
}

// PublicKeys is a sortable slice of *PublicKey, used for committees and
// validator lists which require a canonical byte-order tie-break.
type PublicKeys []*PublicKey

func (p PublicKeys) Len() int           { return len(p) }
func (p PublicKeys) Less(i, j int) bool { return p[i].Cmp(p[j]) < 0 }
func (p PublicKeys) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// Copy returns a shallow copy of the slice (not the underlying keys).
func (p PublicKeys) Copy() PublicKeys {
	cp := make(PublicKeys, len(p))
	copy(cp, p)
	return cp
}

// Unique returns p sorted and with duplicate keys removed.
func (p PublicKeys) Unique() PublicKeys {
	cp := p.Copy()
	sort.Sort(cp)
	out := cp[:0]
	for i, k := range cp {
		if i == 0 || !k.Equal(cp[i-1]) {
			out = append(out, k)
		}
	}
	return out
}

// NewPublicKeysFromStrings decodes a list of hex-encoded compressed public
// keys, as used for the standby committee in configuration.
func NewPublicKeysFromStrings(ss []string) (PublicKeys, error) {
	pubs := make(PublicKeys, len(ss))
	for i, s := range ss {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("standby key %d: %w", i, err)
		}
		pub, err := NewPublicKeyFromBytes(b, elliptic.P256())
		if err != nil {
			return nil, fmt.Errorf("standby key %d: %w", i, err)
		}
		pubs[i] = pub
	}
	return pubs, nil
}
