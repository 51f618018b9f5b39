// Package block implements the Neo N3 block and header wire format and
// the Merkle-root/witness verification tying a block to its contents
// (spec.md §3 "Block", §6 "Block validation").
package block

import (
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Header carries everything needed to verify and link a block without
// downloading its transactions.
type Header struct {
	Version       uint32
	PrevHash      util.Uint256
	MerkleRoot    util.Uint256
	Timestamp     uint64
	Nonce         uint64
	Index         uint32
	PrimaryIndex  byte
	NextConsensus util.Uint160
	Witness       transaction.Witness

	hash *util.Uint256
}

// HashableData returns the unsigned header fields, the bytes hashed to
// derive the block's identity.
func (h *Header) HashableData() []byte {
	w := io.NewBufBinWriter()
	h.encodeUnsigned(w)
	return w.Bytes()
}

// Hash returns the header's double-SHA256 identity, caching on first use.
func (h *Header) Hash() util.Uint256 {
	if h.hash == nil {
		v := hash.CalcHash(h)
		h.hash = &v
	}
	return *h.hash
}

func (h *Header) encodeUnsigned(w *io.BufBinWriter) {
	w.WriteU32LE(h.Version)
	w.WriteBytes(h.PrevHash.BytesLE())
	w.WriteBytes(h.MerkleRoot.BytesLE())
	w.WriteU64LE(h.Timestamp)
	w.WriteU64LE(h.Nonce)
	w.WriteU32LE(h.Index)
	w.WriteU8(h.PrimaryIndex)
	w.WriteBytes(h.NextConsensus.BytesLE())
}

// EncodeBinary writes the full header, unsigned fields plus witness.
func (h *Header) EncodeBinary(w *io.BinWriter) {
	bw := io.NewBufBinWriter()
	h.encodeUnsigned(bw)
	w.WriteBytes(bw.Bytes())
	w.WriteU8(1) // witness count is always 1 for headers
	h.Witness.EncodeBinary(w)
}

// DecodeBinary reads a Header from its wire form.
func (h *Header) DecodeBinary(r *io.BinReader) error {
	h.Version = r.ReadU32LE()
	var b32 [32]byte
	r.ReadBytes(b32[:])
	h.PrevHash = b32
	r.ReadBytes(b32[:])
	h.MerkleRoot = b32
	h.Timestamp = r.ReadU64LE()
	h.Nonce = r.ReadU64LE()
	h.Index = r.ReadU32LE()
	h.PrimaryIndex = r.ReadU8()
	var b20 [20]byte
	r.ReadBytes(b20[:])
	h.NextConsensus = b20
	wc := r.ReadU8()
	if wc != 1 {
		return errors.New("header must carry exactly one witness")
	}
	h.Witness.DecodeBinary(r)
	return nil
}
