// Package state defines the persisted record types the ledger and
// native contracts read and write through pkg/core/dao (spec.md §3).
package state

import (
	"encoding/binary"

	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// StorageKey is a contract-id-scoped key: a 32-bit big-endian contract
// id with its sign bit flipped (so ids sort in numeric order) followed
// by the contract's own key bytes (spec.md §3 "StorageKey").
type StorageKey struct {
	ID  int32
	Key []byte
}

// Bytes renders the key in its on-disk wire form.
func (k StorageKey) Bytes() []byte {
	b := make([]byte, 4+len(k.Key))
	binary.BigEndian.PutUint32(b, uint32(k.ID)^0x80000000) // sign-flip so negative ids sort before positive
	copy(b[4:], k.Key)
	return b
}

// StorageKeyFromBytes parses a wire-form storage key back out.
func StorageKeyFromBytes(b []byte) StorageKey {
	id := int32(binary.BigEndian.Uint32(b[:4]) ^ 0x80000000)
	return StorageKey{ID: id, Key: append([]byte{}, b[4:]...)}
}

// StorageItem is a stored value byte string; it carries no bookkeeping
// flags.
type StorageItem []byte

// NotificationEvent is a single Notify call's recorded payload,
// addressable per trigger run (spec.md §4.2).
type NotificationEvent struct {
	ScriptHash util.Uint160
	Name       string
	Item       *stackitem.Array
}
