// Package storagesys implements the System.Storage.* syscall family: the
// per-contract key/value namespace backed by the DAO (spec.md §4.2
// "Storage context").
package storagesys

import (
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/core/storage"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// MaxKeyLength and MaxValueLength bound a single storage entry (spec.md
// §4.2 "Storage limits").
const (
	MaxKeyLength   = 64
	MaxValueLength = 65535
)

// ErrReadOnlyContext is returned by Put/Delete when the context was
// obtained via GetReadOnlyContext or AsReadOnly.
var ErrReadOnlyContext = errors.New("storage context is read-only")

// Context is the InteropInterface value contracts hold: the owning
// contract id and whether it was narrowed to read-only.
type Context struct {
	ID       int32
	ReadOnly bool
}

// GetContext implements System.Storage.GetContext: a read-write handle
// scoped to the calling contract's id.
func GetContext(ic *interop.Context) *Context {
	return &Context{ID: currentContractID(ic)}
}

// GetReadOnlyContext implements System.Storage.GetReadOnlyContext.
func GetReadOnlyContext(ic *interop.Context) *Context {
	return &Context{ID: currentContractID(ic), ReadOnly: true}
}

// AsReadOnly implements System.Storage.AsReadOnly: narrows an existing
// context, never widens one.
func AsReadOnly(c *Context) *Context {
	return &Context{ID: c.ID, ReadOnly: true}
}

func currentContractID(ic *interop.Context) int32 {
	c, err := ic.GetContract(ic.VM.Context().ScriptHash())
	if err != nil {
		return 0
	}
	return c.ID
}

func storageKey(id int32, key []byte) state.StorageKey {
	return state.StorageKey{ID: id, Key: key}
}

// Get implements System.Storage.Get.
func Get(ic *interop.Context, c *Context, key []byte) (stackitem.Item, error) {
	v, err := ic.DAO.Get(storageKey(c.ID, key).Bytes())
	if err != nil {
		return stackitem.Null{}, nil
	}
	return stackitem.NewByteArray(v), nil
}

// Put implements System.Storage.Put.
func Put(ic *interop.Context, c *Context, key, value []byte) error {
	if c.ReadOnly {
		return ErrReadOnlyContext
	}
	if !ic.VM.CallFlags().Has(callflag.WriteStates) {
		return errors.New("put requires WriteStates")
	}
	if len(key) > MaxKeyLength {
		return errors.New("storage key too long")
	}
	if len(value) > MaxValueLength {
		return errors.New("storage value too long")
	}
	fee := int64(len(value)) * ic.BaseStorageFee()
	if err := ic.VM.AddGas(fee); err != nil {
		return err
	}
	ic.DAO.Put(storageKey(c.ID, key).Bytes(), value)
	return nil
}

// Delete implements System.Storage.Delete.
func Delete(ic *interop.Context, c *Context, key []byte) error {
	if c.ReadOnly {
		return ErrReadOnlyContext
	}
	ic.DAO.Delete(storageKey(c.ID, key).Bytes())
	return nil
}

// FindOptions mirrors the System.Storage.Find FindOptions enum: how to
// trim the returned key/value pairs.
type FindOptions byte

const (
	FindDefault        FindOptions = 0
	FindKeysOnly       FindOptions = 1 << 0
	FindRemovePrefix   FindOptions = 1 << 1
	FindValuesOnly     FindOptions = 1 << 2
	FindDeserialize    FindOptions = 1 << 3
	FindPickField0     FindOptions = 1 << 4
	FindPickField1     FindOptions = 1 << 5
	FindBackwards      FindOptions = 1 << 7
)

// Entry is one (key, value) pair surfaced by an iterator built over
// Find's result set.
type Entry struct {
	Key   []byte
	Value []byte
}

// Find implements System.Storage.Find: a snapshot of every entry under
// id/prefix. Of opts, only FindRemovePrefix and FindBackwards are
// applied; FindKeysOnly, FindValuesOnly, FindDeserialize and the
// FindPickField flags have no effect. The iterator itself
// (System.Iterator.*) walks the returned slice.
func Find(ic *interop.Context, c *Context, prefix []byte, opts FindOptions) []Entry {
	dir := storage.SeekAsc
	if opts&FindBackwards != 0 {
		dir = storage.SeekDesc
	}
	full := storageKey(c.ID, prefix).Bytes()
	var entries []Entry
	ic.DAO.Seek(full, dir, func(k, v []byte) bool {
		key := append([]byte(nil), k[len(full)-len(prefix):]...)
		if opts&FindRemovePrefix != 0 {
			key = key[len(prefix):]
		}
		entries = append(entries, Entry{Key: key, Value: append([]byte(nil), v...)})
		return true
	})
	return entries
}
