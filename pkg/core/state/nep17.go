package state

import (
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
)

// NEP17Balance is the generic fungible-token balance record every
// NEP-17 holder account has under a token's storage prefix.
type NEP17Balance struct {
	Balance *big.Int
}

// NEOBalance extends NEP17Balance with the governance bookkeeping the
// NEO token tracks per holder (spec.md §4.3 "NEO token governance"):
// the height at which Balance last changed, who it's voting for, and
// the last GasPerVote snapshot used to compute accrued rewards.
type NEOBalance struct {
	NEP17Balance
	BalanceHeight  uint32
	VoteTo         []byte // compressed public key, nil if not voting
	LastGasPerVote *big.Int
}

// EncodeBinary writes a NEOBalance in wire form.
func (b *NEOBalance) EncodeBinary(w *io.BinWriter) {
	w.WriteVarBytes(bigint.ToBytes(b.Balance))
	w.WriteU32LE(b.BalanceHeight)
	w.WriteVarBytes(b.VoteTo)
	w.WriteVarBytes(bigint.ToBytes(b.LastGasPerVote))
}

// DecodeBinary reads a NEOBalance.
func (b *NEOBalance) DecodeBinary(r *io.BinReader) {
	b.Balance = bigint.FromBytes(r.ReadVarBytes())
	b.BalanceHeight = r.ReadU32LE()
	if vt := r.ReadVarBytes(33); len(vt) > 0 {
		b.VoteTo = vt
	}
	b.LastGasPerVote = bigint.FromBytes(r.ReadVarBytes())
}

// Candidate is one registered NEO governance candidate.
type Candidate struct {
	Registered bool
	Votes      *big.Int
}

// EncodeBinary writes a Candidate in wire form.
func (c *Candidate) EncodeBinary(w *io.BinWriter) {
	w.WriteB(c.Registered)
	w.WriteVarBytes(bigint.ToBytes(c.Votes))
}

// DecodeBinary reads a Candidate.
func (c *Candidate) DecodeBinary(r *io.BinReader) {
	c.Registered = r.ReadB()
	c.Votes = bigint.FromBytes(r.ReadVarBytes())
}

// GasRecord is one entry of NeoToken's "GAS generated per block"
// schedule: from the given height onward, this many GAS-fractions are
// minted to NEO holders/committee per block.
type GasRecord struct {
	Index       uint32
	GASPerBlock big.Int
}
