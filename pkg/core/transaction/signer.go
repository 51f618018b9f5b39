// Package transaction implements the Neo N3 transaction wire format:
// signer scopes, witnesses, attributes, and the transaction envelope
// itself (spec.md §3 "Transaction", §6).
package transaction

import (
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Scope is a bitmask describing the conditions under which a signer's
// witness is considered to authorize a contract call (spec.md §3
// "Signer scopes").
type Scope byte

const (
	None            Scope = 0
	CalledByEntry   Scope = 1 << 0
	CustomContracts Scope = 1 << 4
	CustomGroups    Scope = 1 << 5
	WitnessRules    Scope = 1 << 6
	Global          Scope = 1 << 7
)

// WitnessConditionType tags the kind of a WitnessRule's predicate node.
type WitnessConditionType byte

const (
	ConditionScriptHash WitnessConditionType = 0x18
	ConditionGroup      WitnessConditionType = 0x19
	ConditionCalledByEntry WitnessConditionType = 0x20
	ConditionAnd        WitnessConditionType = 0x03
	ConditionOr         WitnessConditionType = 0x04
	ConditionNot        WitnessConditionType = 0x02
)

// WitnessCondition is one node of a WitnessRule's predicate tree.
type WitnessCondition struct {
	Type       WitnessConditionType
	ScriptHash util.Uint160
	Group      []byte
	Inner      []*WitnessCondition // And/Or operands, or the single Not operand
}

// WitnessRuleAction is the verdict a matched WitnessRule contributes.
type WitnessRuleAction byte

const (
	WitnessDeny  WitnessRuleAction = 0
	WitnessAllow WitnessRuleAction = 1
)

// WitnessRule is a single (condition, action) pair. Signer.Rules carries
// them in order; runtime.CheckWitness does not evaluate them.
type WitnessRule struct {
	Action    WitnessRuleAction
	Condition *WitnessCondition
}

// Signer is an (account, scope) pair describing which witness must
// authorize the transaction and under what conditions (spec.md §3).
type Signer struct {
	Account          util.Uint160
	Scopes           Scope
	AllowedContracts []util.Uint160
	AllowedGroups    [][]byte
	Rules            []WitnessRule
}

// Witness is an (invocation-script, verification-script) pair proving a
// signer's authorization (spec.md GLOSSARY "Witness").
type Witness struct {
	InvocationScript   []byte
	VerificationScript []byte
}

// ScriptHash returns the script hash a verification script must match
// for this witness to apply to a given signer.
func (w Witness) ScriptHash() util.Uint160 {
	return hash.Hash160(w.VerificationScript)
}

func (s Scope) Has(bit Scope) bool { return s&bit == bit }

// EncodeBinary writes a Signer in wire form.
func (s *Signer) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(s.Account.BytesLE())
	w.WriteU8(byte(s.Scopes))
	if s.Scopes.Has(CustomContracts) {
		w.WriteVarUint(uint64(len(s.AllowedContracts)))
		for _, c := range s.AllowedContracts {
			w.WriteBytes(c.BytesLE())
		}
	}
	if s.Scopes.Has(CustomGroups) {
		w.WriteVarUint(uint64(len(s.AllowedGroups)))
		for _, g := range s.AllowedGroups {
			w.WriteVarBytes(g)
		}
	}
	if s.Scopes.Has(WitnessRules) {
		w.WriteVarUint(uint64(len(s.Rules)))
		// rule tree encoding omitted at the wire layer: only the rule
		// count is written, and CheckWitness does not evaluate rules.
	}
}

// DecodeBinary reads a Signer; see EncodeBinary for scope notes.
func (s *Signer) DecodeBinary(r *io.BinReader) {
	var acc [20]byte
	r.ReadBytes(acc[:])
	s.Account = acc
	s.Scopes = Scope(r.ReadU8())
	if s.Scopes.Has(CustomContracts) {
		n := r.ReadVarUint()
		s.AllowedContracts = make([]util.Uint160, n)
		for i := range s.AllowedContracts {
			var b [20]byte
			r.ReadBytes(b[:])
			s.AllowedContracts[i] = b
		}
	}
	if s.Scopes.Has(CustomGroups) {
		n := r.ReadVarUint()
		s.AllowedGroups = make([][]byte, n)
		for i := range s.AllowedGroups {
			s.AllowedGroups[i] = r.ReadVarBytes(33)
		}
	}
}

// EncodeBinary writes a Witness in wire form.
func (w *Witness) EncodeBinary(bw *io.BinWriter) {
	bw.WriteVarBytes(w.InvocationScript)
	bw.WriteVarBytes(w.VerificationScript)
}

// DecodeBinary reads a Witness.
func (w *Witness) DecodeBinary(br *io.BinReader) {
	w.InvocationScript = br.ReadVarBytes(65536)
	w.VerificationScript = br.ReadVarBytes(65536)
}
