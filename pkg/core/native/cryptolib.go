package native

import (
	"crypto/elliptic"
	"errors"

	"github.com/twmb/murmur3"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// namedCurveID selects which curve verifyWithECDsa checks a signature
// against, a simplified stand-in for the real node's NamedCurveHash
// enum (this core only ever hashes with SHA256, so the hash half of
// that enum is dropped).
type namedCurveID byte

const (
	CurveSecp256r1 namedCurveID = 0
	CurveSecp256k1 namedCurveID = 1
)

// CryptoLib is the native contract exposing the hash/signature
// primitives scripts need but can't implement themselves without a
// SYSCALL (spec.md §4.3 "CryptoLib").
type CryptoLib struct {
	md *interop.ContractMD
}

// NewCryptoLib builds the CryptoLib native with its fixed method table.
func NewCryptoLib() *CryptoLib {
	c := &CryptoLib{md: interop.NewContractMD("CryptoLib", CryptoLibID, HashFromID(CryptoLibID))}
	hashMethod := func(name string) manifest.Method {
		return manifest.Method{Name: name, Parameters: []manifest.Parameter{{Name: "data", Type: "ByteString"}}, ReturnType: "ByteString", Safe: true}
	}
	c.md.AddMethod(interop.MethodAndPrice{Func: c.sha256, RequiredFlags: callflag.None, MD: hashMethod("sha256")})
	c.md.AddMethod(interop.MethodAndPrice{Func: c.ripemd160, RequiredFlags: callflag.None, MD: hashMethod("ripemd160")})
	c.md.AddMethod(interop.MethodAndPrice{Func: c.murmur32, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "murmur32", Parameters: []manifest.Parameter{
			{Name: "data", Type: "ByteString"}, {Name: "seed", Type: "Integer"},
		}, ReturnType: "ByteString", Safe: true}})
	c.md.AddMethod(interop.MethodAndPrice{Func: c.verifyWithECDsa, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "verifyWithECDsa", Parameters: []manifest.Parameter{
			{Name: "message", Type: "ByteString"}, {Name: "pubkey", Type: "ByteString"},
			{Name: "signature", Type: "ByteString"}, {Name: "curve", Type: "Integer"},
		}, ReturnType: "Boolean", Safe: true}})
	return c
}

func (c *CryptoLib) Metadata() *interop.ContractMD    { return c.md }
func (c *CryptoLib) Initialize(ic *interop.Context) error  { return nil }
func (c *CryptoLib) OnPersist(ic *interop.Context) error   { return nil }
func (c *CryptoLib) PostPersist(ic *interop.Context) error { return nil }

func (c *CryptoLib) sha256(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	h := hash.Sha256(b)
	return stackitem.NewByteArray(h[:]), nil
}

func (c *CryptoLib) ripemd160(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	h := hash.RipeMD160(b)
	return stackitem.NewByteArray(h[:]), nil
}

func (c *CryptoLib) murmur32(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	seed, err := bigIntArg(args, 1)
	if err != nil {
		return nil, err
	}
	sum := murmur3.Sum32WithSeed(b, uint32(seed.Uint64()))
	return stackitem.NewByteArray([]byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24)}), nil
}

var errUnknownCurve = errors.New("unknown named curve")

func (c *CryptoLib) verifyWithECDsa(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	msg, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	pub, err := args[1].TryBytes()
	if err != nil {
		return nil, err
	}
	sig, err := args[2].TryBytes()
	if err != nil {
		return nil, err
	}
	curveID, err := bigIntArg(args, 3)
	if err != nil {
		return nil, err
	}
	var curve interface {
		Params() *elliptic.CurveParams
	}
	switch namedCurveID(curveID.Int64()) {
	case CurveSecp256r1:
		curve = elliptic.P256()
	case CurveSecp256k1:
		curve = keys.Secp256k1
	default:
		return nil, errUnknownCurve
	}
	key, err := keys.NewPublicKeyFromBytes(pub, curve)
	if err != nil {
		return stackitem.NewBool(false), nil
	}
	return stackitem.NewBool(key.Verify(sig, msg)), nil
}
