package transaction

import (
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// AttrType tags the kind of a transaction attribute.
type AttrType byte

const (
	HighPriority   AttrType = 0x01
	OracleResponse AttrType = 0x11
	NotValidBefore AttrType = 0x20
	Conflicts      AttrType = 0x21
)

// Attribute is a single opaque transaction attribute; interpretation is
// left to whoever reads AttrType (spec.md §3 "Transaction attributes").
type Attribute struct {
	Type AttrType
	Data []byte
}

// MaxTransactionSize and MaxAttributes bound the wire form of a
// transaction (spec.md §3 "Transaction" limits).
const (
	MaxTransactionSize = 102400
	MaxAttributes      = 16
	MaxScriptLength    = 65536
)

var (
	ErrTooLong       = errors.New("transaction exceeds maximum size")
	ErrTooManyAttrs  = errors.New("too many attributes")
	ErrNoScript      = errors.New("transaction has no script")
	ErrNoSigners     = errors.New("transaction has no signers")
	ErrDuplicateSigner = errors.New("duplicate signer account")
)

// Transaction is the Neo N3 transaction envelope: the unit of state
// change a user submits and the mempool/ledger carry through consensus
// (spec.md §3 "Transaction", §6).
type Transaction struct {
	Version         uint8
	Nonce           uint32
	SystemFee       int64
	NetworkFee      int64
	ValidUntilBlock uint32
	Signers         []Signer
	Attributes      []Attribute
	Script          []byte
	Witnesses       []Witness

	hash      *util.Uint256
	size      int
}

// Sender returns the first signer, the account that pays system/network
// fees (spec.md GLOSSARY "Sender").
func (t *Transaction) Sender() util.Uint160 {
	return t.Signers[0].Account
}

// HasAttribute reports whether an attribute of the given type is present.
func (t *Transaction) HasAttribute(typ AttrType) bool {
	for _, a := range t.Attributes {
		if a.Type == typ {
			return true
		}
	}
	return false
}

// HashableData returns the unsigned portion of the transaction, hashed
// to derive its identity (hash.Hashable).
func (t *Transaction) HashableData() []byte {
	w := io.NewBufBinWriter()
	t.encodeUnsigned(w)
	return w.Bytes()
}

// Hash returns the transaction's double-SHA256 identity, computing and
// caching it on first use.
func (t *Transaction) Hash() util.Uint256 {
	if t.hash == nil {
		h := hash.CalcHash(t)
		t.hash = &h
	}
	return *t.hash
}

// Size returns the transaction's wire-encoded byte length, computing and
// caching it on first use (spec.md §7 "NetworkFee" is charged per byte
// of this size).
func (t *Transaction) Size() int {
	if t.size == 0 {
		w := io.NewBufBinWriter()
		t.EncodeBinary(w.BinWriter)
		t.size = len(w.Bytes())
	}
	return t.size
}

func (t *Transaction) encodeUnsigned(w *io.BufBinWriter) {
	w.WriteU8(t.Version)
	w.WriteU32LE(t.Nonce)
	w.WriteU64LE(uint64(t.SystemFee))
	w.WriteU64LE(uint64(t.NetworkFee))
	w.WriteU32LE(t.ValidUntilBlock)
	w.WriteVarUint(uint64(len(t.Signers)))
	for i := range t.Signers {
		t.Signers[i].EncodeBinary(w.BinWriter)
	}
	w.WriteVarUint(uint64(len(t.Attributes)))
	for _, a := range t.Attributes {
		w.WriteU8(byte(a.Type))
		w.WriteVarBytes(a.Data)
	}
	w.WriteVarBytes(t.Script)
}

// EncodeBinary writes the full signed transaction, unsigned data plus
// witnesses, in wire order.
func (t *Transaction) EncodeBinary(w *io.BinWriter) {
	bw := io.NewBufBinWriter()
	t.encodeUnsigned(bw)
	w.WriteBytes(bw.Bytes())
	w.WriteVarUint(uint64(len(t.Witnesses)))
	for i := range t.Witnesses {
		t.Witnesses[i].EncodeBinary(w)
	}
}

// DecodeBinary reads a Transaction from its wire form.
func (t *Transaction) DecodeBinary(r *io.BinReader) error {
	t.Version = r.ReadU8()
	t.Nonce = r.ReadU32LE()
	t.SystemFee = int64(r.ReadU64LE())
	t.NetworkFee = int64(r.ReadU64LE())
	t.ValidUntilBlock = r.ReadU32LE()

	nSigners := r.ReadVarUint()
	if nSigners == 0 {
		return ErrNoSigners
	}
	t.Signers = make([]Signer, nSigners)
	seen := make(map[util.Uint160]bool, nSigners)
	for i := range t.Signers {
		t.Signers[i].DecodeBinary(r)
		if seen[t.Signers[i].Account] {
			return ErrDuplicateSigner
		}
		seen[t.Signers[i].Account] = true
	}

	nAttrs := r.ReadVarUint()
	if nAttrs > MaxAttributes {
		return ErrTooManyAttrs
	}
	t.Attributes = make([]Attribute, nAttrs)
	for i := range t.Attributes {
		t.Attributes[i].Type = AttrType(r.ReadU8())
		t.Attributes[i].Data = r.ReadVarBytes(65535)
	}

	t.Script = r.ReadVarBytes(MaxScriptLength)
	if len(t.Script) == 0 {
		return ErrNoScript
	}

	nWit := r.ReadVarUint()
	t.Witnesses = make([]Witness, nWit)
	for i := range t.Witnesses {
		t.Witnesses[i].DecodeBinary(r)
	}
	return nil
}
