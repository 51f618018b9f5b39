// Package iterator implements the System.Iterator.* syscall family: a
// cursor over a previously materialized result set (currently only
// System.Storage.Find's), consumed one Next/Value pair at a time so a
// contract never has to load an entire result set onto the evaluation
// stack at once (spec.md §4.2).
package iterator

import "github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"

// Iterator is the InteropInterface value System.Storage.Find returns;
// Next/Value walk it without copying the backing slice.
type Iterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

// New wraps a key/value result set as an Iterator.
func New(keys, values [][]byte) *Iterator {
	return &Iterator{keys: keys, values: values, pos: -1}
}

// Next implements System.Iterator.Next: advances the cursor, returning
// false once exhausted.
func (it *Iterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

// Value implements System.Iterator.Value: the current (key, value) pair
// as a 2-element Struct, or Null when the cursor is not on an entry.
func (it *Iterator) Value() stackitem.Item {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return stackitem.Null{}
	}
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(it.keys[it.pos]),
		stackitem.NewByteArray(it.values[it.pos]),
	})
}
