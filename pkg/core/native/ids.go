// Package native implements the built-in contract suite spec.md §4.3
// requires: ordinary contracts from a caller's perspective, invoked
// through the same System.Contract.Call path as a deployed user
// contract, but whose methods run as host code rather than stepping a
// VM script (see pkg/core/interop/contract.go's ContractMD).
package native

import (
	"encoding/binary"

	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Fixed native contract ids (spec.md §4.3 "a fixed contract-id, negative
// integers reserved for natives"). NeoToken/GasToken keep the exact ids
// spec.md §4.3's table assigns them; the remaining natives (not given
// explicit ids by the spec) are assigned adjacent negative ids here, an
// Open Question decision recorded in DESIGN.md.
const (
	ManagementID  int32 = -1
	StdLibID      int32 = -2
	CryptoLibID   int32 = -3
	LedgerID      int32 = -4
	NeoTokenID    int32 = 1
	GasTokenID    int32 = 2
	PolicyID      int32 = -5
	RoleMgmtID    int32 = -6
	OracleID      int32 = -7
)

// HashFromID derives a native contract's script hash deterministically
// from its fixed id: the id's 4 little-endian bytes run through the
// ordinary Hash160 script-hash function. Deployed contracts get their
// hashes from state.CreateContractHash instead.
func HashFromID(id int32) util.Uint160 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(id))
	return hash.Hash160(b[:])
}
