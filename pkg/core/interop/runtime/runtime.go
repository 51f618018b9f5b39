// Package runtime implements the System.Runtime.* syscall family: witness
// checking, notifications, logging, and the read-only execution context
// queries every contract can make (spec.md §4.2 "Application engine").
package runtime

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// MaxNotificationNameLength bounds System.Runtime.Notify's event name
// (spec.md §4.2 "Notify").
const MaxNotificationNameLength = 32

// MaxLogMessageLength bounds System.Runtime.Log's message.
const MaxLogMessageLength = 1024

// CheckWitness implements System.Runtime.CheckWitness: true iff the
// given 20-byte script hash names a signer on the current transaction
// whose scope covers the calling contract, or is the calling script hash
// itself. Only the Global, CalledByEntry and CustomContracts scopes are
// evaluated; CustomGroups and WitnessRules never grant a witness.
func CheckWitness(ic *interop.Context, target []byte) (bool, error) {
	var hash util.Uint160
	switch len(target) {
	case util.Uint160Size:
		h, err := util.Uint160DecodeBytesLE(target)
		if err != nil {
			return false, err
		}
		hash = h
	default:
		return false, fmt.Errorf("invalid CheckWitness target length %d", len(target))
	}
	caller := ic.VM.Context().ScriptHash()
	if hash == caller {
		return true, nil
	}
	for _, s := range ic.Signers() {
		if s.Account != hash {
			continue
		}
		if s.Scopes == transaction.Global || s.Scopes.Has(transaction.CalledByEntry) {
			return true, nil
		}
		if s.Scopes.Has(transaction.CustomContracts) {
			for _, c := range s.AllowedContracts {
				if c == caller {
					return true, nil
				}
			}
		}
		return false, nil
	}
	return false, nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// Notify implements System.Runtime.Notify: records a notification event
// under the calling script's hash.
func Notify(ic *interop.Context, name string, args *stackitem.Array) error {
	if len(name) > MaxNotificationNameLength {
		return fmt.Errorf("notification name exceeds %d bytes", MaxNotificationNameLength)
	}
	if !ic.VM.CallFlags().Has(callflag.AllowNotify) {
		return fmt.Errorf("notify requires AllowNotify")
	}
	ic.AddNotification(ic.VM.Context().ScriptHash(), name, args)
	return nil
}

// Log implements System.Runtime.Log: appends a structured log line
// tagged with the calling contract's hash.
func Log(ic *interop.Context, message string) error {
	if len(message) > MaxLogMessageLength {
		return fmt.Errorf("log message exceeds %d bytes", MaxLogMessageLength)
	}
	ic.Log.Info("contract log",
		zap.String("script", ic.VM.Context().ScriptHash().StringLE()),
		zap.String("message", message))
	return nil
}

// GetTime implements System.Runtime.GetTime: the timestamp of the block
// currently being persisted, or of the chain tip otherwise.
func GetTime(ic *interop.Context) uint64 {
	b, err := ic.GetBlock(ic.BlockHeight())
	if err != nil {
		return 0
	}
	return b.Timestamp
}

// GetRandom implements System.Runtime.GetRandom: a deterministic
// pseudo-random value every node replaying the block computes
// identically, derived from the block's nonce mixed with a monotonic
// per-invocation counter (spec.md §4.2 "GetRandom must be
// deterministic").
func GetRandom(ic *interop.Context) *big.Int {
	var nonce uint64
	if ic.Block != nil {
		nonce = ic.Block.Nonce
	}
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], nonce)
	binary.LittleEndian.PutUint64(buf[8:16], ic.GetRandomCounter)
	ic.GetRandomCounter++
	h := hash.Sha256(buf[:])
	return new(big.Int).SetBytes(reverseBytes(h.BytesLE()))
}
