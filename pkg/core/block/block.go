package block

import (
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Block is a Header plus its transaction list (spec.md §3 "Block").
type Block struct {
	Header
	Transactions []*transaction.Transaction
}

// ErrMerkleMismatch is returned by Verify when the header's MerkleRoot
// doesn't match the hash of Transactions.
var ErrMerkleMismatch = errors.New("merkle root mismatch")

// ComputeMerkleRoot derives the block's Merkle root from its current
// transaction list, using the empty-tree convention (all zero) for a
// block with no transactions.
func (b *Block) ComputeMerkleRoot() util.Uint256 {
	if len(b.Transactions) == 0 {
		return util.Uint256{}
	}
	hashes := make([]util.Uint256, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash()
	}
	root, err := hash.MerkleRoot(hashes)
	if err != nil {
		return util.Uint256{}
	}
	return root
}

// Verify checks that the header's MerkleRoot field matches the actual
// transaction list (spec.md §6 "Block validation").
func (b *Block) Verify() error {
	if b.ComputeMerkleRoot() != b.MerkleRoot {
		return ErrMerkleMismatch
	}
	return nil
}

// EncodeBinary writes the full block: header then transaction list.
func (b *Block) EncodeBinary(w *io.BinWriter) {
	b.Header.EncodeBinary(w)
	w.WriteVarUint(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		tx.EncodeBinary(w)
	}
}

// DecodeBinary reads a full Block from its wire form.
func (b *Block) DecodeBinary(r *io.BinReader) error {
	if err := b.Header.DecodeBinary(r); err != nil {
		return err
	}
	n := r.ReadVarUint()
	b.Transactions = make([]*transaction.Transaction, n)
	for i := range b.Transactions {
		tx := &transaction.Transaction{}
		if err := tx.DecodeBinary(r); err != nil {
			return err
		}
		b.Transactions[i] = tx
	}
	return nil
}

// Trim returns a copy of the block's header, without its transactions.
func (b *Block) Trim() *Header {
	h := b.Header
	return &h
}
