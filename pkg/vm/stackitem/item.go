// Package stackitem implements the Neo VM's polymorphic stack item sum
// type (spec.md §3, §9 "Polymorphic StackItem"): a tagged union dispatched
// through a small common interface rather than a deep inheritance tree, so
// that GetType/GetBoolean/GetInteger/Equals/DeepCopy/ConvertTo are table
// driven per the design notes.
package stackitem

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// MaxBigIntegerSizeBits bounds VM integers; exceeding it faults the
// current execution instead of wrapping (spec.md §4.1).
const MaxBigIntegerSizeBits = 32 * 8

// MaxSize is the maximum serialized size of any single stack item.
const MaxSize = 65535

// MaxArraySize bounds the number of elements a compound item may hold
// directly (further elements require nested compounds).
const MaxArraySize = 1024

// ErrInvalidType is raised when an opcode's type pre-conditions are violated.
var ErrInvalidType = errors.New("invalid type")

// ErrTooBig is raised when a conversion or arithmetic result would exceed
// the configured size caps.
var ErrTooBig = errors.New("too big")

// ErrInvalidValue marks a value that cannot be represented or converted.
var ErrInvalidValue = errors.New("invalid value")

// Item is the common interface implemented by every stack item variant.
// Dispatch is by type switch/tag, not inheritance (spec.md §9).
type Item interface {
	// Type returns the item's variant tag.
	Type() Type
	// Value returns the variant's raw Go value.
	Value() any
	// Boolean converts the item to its truthiness per the fixed
	// conversion table; every variant has a truthiness, so it never
	// faults.
	Boolean() bool
	// TryBytes returns the item's canonical byte representation, or an
	// error if the variant has none.
	TryBytes() ([]byte, error)
	// TryInteger returns the item's integer value, or an error if the
	// variant isn't integer-convertible.
	TryInteger() (*big.Int, error)
	// Equals implements the fixed-table equality rules: primitive items
	// compare by value, Struct recursively by value, Array/Map by identity.
	Equals(Item) bool
	// Dup returns a value suitable for pushing as a second reference:
	// primitives return themselves (immutable), compounds return
	// themselves too (reference semantics) except Struct, which is
	// value-copied on DUP/argument-pass per spec.md's Struct variant note.
	Dup() Item
	// String is a debug representation, not used for hashing/equality.
	String() string
}

// Null represents the VM's Null value.
type Null struct{}

func (Null) Type() Type    { return AnyT }
func (Null) Value() any    { return nil }
func (Null) Boolean() bool { return false }
func (Null) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: can't convert Null to ByteString", ErrInvalidType)
}
func (Null) TryInteger() (*big.Int, error) {
	return nil, fmt.Errorf("%w: can't convert Null to Integer", ErrInvalidType)
}
func (Null) Equals(i Item) bool {
	_, ok := i.(Null)
	return ok
}
func (n Null) Dup() Item    { return n }
func (Null) String() string { return "Null" }

// Bool is the Boolean variant.
type Bool bool

func NewBool(b bool) Item { return Bool(b) }

func (b Bool) Type() Type { return BooleanT }
func (b Bool) Value() any { return bool(b) }
func (b Bool) Boolean() bool { return bool(b) }
func (b Bool) TryBytes() ([]byte, error) {
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}
func (b Bool) TryInteger() (*big.Int, error) {
	if b {
		return big.NewInt(1), nil
	}
	return big.NewInt(0), nil
}
func (b Bool) Equals(i Item) bool {
	o, ok := i.(Bool)
	return ok && o == b
}
func (b Bool) Dup() Item { return b }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// BigInteger is the Integer variant: an unbounded bigint with a size cap.
type BigInteger struct {
	value *big.Int
}

// NewBigInteger creates an Integer item, faulting (via panic) if it
// exceeds MaxBigIntegerSizeBits.
func NewBigInteger(v *big.Int) Item {
	if v.BitLen() > MaxBigIntegerSizeBits {
		panic(fmt.Errorf("%w: integer exceeds %d bits", ErrTooBig, MaxBigIntegerSizeBits))
	}
	return &BigInteger{value: new(big.Int).Set(v)}
}

// NewBigIntegerFromInt64 creates a BigInteger from an int64.
func NewBigIntegerFromInt64(v int64) Item { return &BigInteger{value: big.NewInt(v)} }

// NewBigIntegerFromBig creates a BigInteger from a *big.Int without
// re-copying (caller must not mutate it afterward).
func NewBigIntegerFromBig(v *big.Int) Item { return &BigInteger{value: v} }

// NewBigIntegerFromU256 creates a BigInteger from a uint256.Int.
func NewBigIntegerFromU256(v *uint256.Int) Item { return &BigInteger{value: v.ToBig()} }

func (b *BigInteger) Type() Type { return IntegerT }
func (b *BigInteger) Value() any { return b.value }
func (b *BigInteger) Boolean() bool { return b.value.Sign() != 0 }
func (b *BigInteger) TryBytes() ([]byte, error) { return bigToBytes(b.value), nil }
func (b *BigInteger) TryInteger() (*big.Int, error) { return b.value, nil }
func (b *BigInteger) Equals(i Item) bool {
	o, ok := i.(*BigInteger)
	return ok && o.value.Cmp(b.value) == 0
}
func (b *BigInteger) Dup() Item { return b }
func (b *BigInteger) String() string { return b.value.String() }

// bigToBytes encodes a big.Int in minimal two's-complement little-endian
// form, the canonical ByteString conversion for VM integers.
func bigToBytes(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{}
	}
	bs := n.Bytes() // big-endian magnitude
	// reverse to little-endian
	for i, j := 0, len(bs)-1; i < j; i, j = i+1, j-1 {
		bs[i], bs[j] = bs[j], bs[i]
	}
	if n.Sign() < 0 {
		// two's complement negation over the byte length, then a 0xff
		// byte if the result's top bit is clear, to preserve the sign.
		carry := 1
		for i := range bs {
			v := int(^bs[i]&0xff) + carry
			bs[i] = byte(v)
			carry = v >> 8
		}
		if bs[len(bs)-1]&0x80 == 0 {
			bs = append(bs, 0xff)
		}
	} else if bs[len(bs)-1]&0x80 != 0 {
		bs = append(bs, 0)
	}
	return bs
}

func bytesToBig(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	neg := b[len(b)-1]&0x80 != 0
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	n := new(big.Int).SetBytes(be)
	if neg {
		max := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		n.Sub(n, max)
	}
	return n
}

// ByteString is an immutable byte-string variant (used for scripts, keys,
// strings, and serialized byte payloads).
type ByteString []byte

func NewByteArray(b []byte) Item {
	cp := make([]byte, len(b))
	copy(cp, b)
	return ByteString(cp)
}

func (b ByteString) Type() Type { return ByteStringT }
func (b ByteString) Value() any { return []byte(b) }
func (b ByteString) Boolean() bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}
func (b ByteString) TryBytes() ([]byte, error) { return []byte(b), nil }
func (b ByteString) TryInteger() (*big.Int, error) {
	if len(b) > MaxBigIntegerSizeBits/8 {
		return nil, fmt.Errorf("%w: byte string too long for integer conversion", ErrInvalidValue)
	}
	return bytesToBig(b), nil
}
func (b ByteString) Equals(i Item) bool {
	switch o := i.(type) {
	case ByteString:
		return bytes.Equal(b, o)
	case Buffer:
		return bytes.Equal(b, o)
	default:
		return false
	}
}
func (b ByteString) Dup() Item    { return b }
func (b ByteString) String() string { return fmt.Sprintf("ByteString(%d)", len(b)) }

// Buffer is a mutable byte buffer variant.
type Buffer []byte

func NewBuffer(b []byte) Item { return Buffer(b) }

func (b Buffer) Type() Type { return BufferT }
func (b Buffer) Value() any { return []byte(b) }
func (b Buffer) Boolean() bool {
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}
func (b Buffer) TryBytes() ([]byte, error) { return []byte(b), nil }
func (b Buffer) TryInteger() (*big.Int, error) { return bytesToBig(b), nil }
func (b Buffer) Equals(i Item) bool { return false } // Buffers compare by identity only.
func (b Buffer) Dup() Item {
	cp := make(Buffer, len(b))
	copy(cp, b)
	return cp
}
func (b Buffer) String() string { return fmt.Sprintf("Buffer(%d)", len(b)) }

// Array is the ordered, reference-compared compound variant.
type Array struct {
	value []Item
}

func NewArray(items []Item) *Array { return &Array{value: items} }

func (a *Array) Type() Type { return ArrayT }
func (a *Array) Value() any { return a.value }
func (a *Array) Boolean() bool { return true }
func (a *Array) Len() int      { return len(a.value) }
func (a *Array) Append(i Item) { a.value = append(a.value, i) }
func (a *Array) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: can't convert Array to ByteString", ErrInvalidType)
}
func (a *Array) TryInteger() (*big.Int, error) {
	return nil, fmt.Errorf("%w: can't convert Array to Integer", ErrInvalidType)
}
func (a *Array) Equals(i Item) bool { return a == i }
func (a *Array) Dup() Item          { return a }
func (a *Array) String() string     { return fmt.Sprintf("Array(%d)", len(a.value)) }

// RemoveLast pops and returns the last element (POPITEM).
func (a *Array) RemoveLast() Item {
	last := a.value[len(a.value)-1]
	a.value = a.value[:len(a.value)-1]
	return last
}

// SetAt replaces the element at i (SETITEM on an Array).
func (a *Array) SetAt(i int, v Item) error {
	if i < 0 || i >= len(a.value) {
		return fmt.Errorf("%w: index out of range", ErrInvalidValue)
	}
	a.value[i] = v
	return nil
}

// RemoveAt deletes the element at i, shifting later elements down.
func (a *Array) RemoveAt(i int) error {
	if i < 0 || i >= len(a.value) {
		return fmt.Errorf("%w: index out of range", ErrInvalidValue)
	}
	a.value = append(a.value[:i], a.value[i+1:]...)
	return nil
}

// Reverse reverses the elements in place (REVERSEITEMS).
func (a *Array) Reverse() {
	for i, j := 0, len(a.value)-1; i < j; i, j = i+1, j-1 {
		a.value[i], a.value[j] = a.value[j], a.value[i]
	}
}

// Clear empties the array (CLEARITEMS).
func (a *Array) Clear() { a.value = nil }

// Struct is the value-compared compound variant: two Structs are equal
// iff their elements are recursively equal, matching spec.md's "Struct by
// recursive deep equality" rule.
type Struct struct {
	value []Item
}

func NewStruct(items []Item) *Struct { return &Struct{value: items} }

func (s *Struct) Type() Type { return StructT }
func (s *Struct) Value() any { return s.value }
func (s *Struct) Boolean() bool { return true }
func (s *Struct) Len() int      { return len(s.value) }
func (s *Struct) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: can't convert Struct to ByteString", ErrInvalidType)
}
func (s *Struct) TryInteger() (*big.Int, error) {
	return nil, fmt.Errorf("%w: can't convert Struct to Integer", ErrInvalidType)
}
func (s *Struct) Equals(i Item) bool {
	o, ok := i.(*Struct)
	if !ok || len(o.value) != len(s.value) {
		return false
	}
	for k := range s.value {
		if !s.value[k].Equals(o.value[k]) {
			return false
		}
	}
	return true
}
func (s *Struct) Dup() Item {
	cp := make([]Item, len(s.value))
	for i, v := range s.value {
		if st, ok := v.(*Struct); ok {
			cp[i] = st.Dup()
		} else {
			cp[i] = v
		}
	}
	return &Struct{value: cp}
}
func (s *Struct) String() string { return fmt.Sprintf("Struct(%d)", len(s.value)) }

// AppendItem appends v (APPEND on a Struct).
func (s *Struct) AppendItem(v Item) { s.value = append(s.value, v) }

// Reverse reverses the elements in place (REVERSEITEMS).
func (s *Struct) Reverse() {
	for i, j := 0, len(s.value)-1; i < j; i, j = i+1, j-1 {
		s.value[i], s.value[j] = s.value[j], s.value[i]
	}
}

// Clear empties the struct (CLEARITEMS).
func (s *Struct) Clear() { s.value = nil }

// mapElement is a single Map key/value pair, stored in insertion order.
type mapElement struct {
	Key   Item
	Value Item
}

// Map is the insertion-ordered keyed container variant. Keys are
// compared by canonical byte serialization for primitive types (spec.md
// §4.1 determinism: "StackItem-identity keys compared by their canonical
// byte serialization for primitive keys").
type Map struct {
	elems []mapElement
}

func NewMap() *Map { return &Map{} }

func (m *Map) Type() Type { return MapT }
func (m *Map) Value() any { return m.elems }
func (m *Map) Boolean() bool { return true }
func (m *Map) Len() int      { return len(m.elems) }
func (m *Map) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: can't convert Map to ByteString", ErrInvalidType)
}
func (m *Map) TryInteger() (*big.Int, error) {
	return nil, fmt.Errorf("%w: can't convert Map to Integer", ErrInvalidType)
}
func (m *Map) Equals(i Item) bool { return m == i }
func (m *Map) Dup() Item          { return m }
func (m *Map) String() string     { return fmt.Sprintf("Map(%d)", len(m.elems)) }

func mapKeyBytes(k Item) (string, error) {
	b, err := k.TryBytes()
	if err != nil {
		return "", fmt.Errorf("%w: invalid map key", ErrInvalidType)
	}
	full := make([]byte, 0, len(b)+1)
	full = append(full, byte(k.Type()))
	full = append(full, b...)
	return string(full), nil
}

// Index returns the position of key in the map, or -1.
func (m *Map) Index(key Item) int {
	kb, err := mapKeyBytes(key)
	if err != nil {
		return -1
	}
	for i, e := range m.elems {
		eb, _ := mapKeyBytes(e.Key)
		if eb == kb {
			return i
		}
	}
	return -1
}

// Get returns the value for key, and whether it was present.
func (m *Map) Get(key Item) (Item, bool) {
	i := m.Index(key)
	if i < 0 {
		return nil, false
	}
	return m.elems[i].Value, true
}

// Set inserts or updates key -> value, preserving first-insertion order.
func (m *Map) Set(key, value Item) {
	i := m.Index(key)
	if i >= 0 {
		m.elems[i].Value = value
		return
	}
	m.elems = append(m.elems, mapElement{Key: key, Value: value})
}

// Delete removes key if present.
func (m *Map) Delete(key Item) {
	i := m.Index(key)
	if i < 0 {
		return
	}
	m.elems = append(m.elems[:i], m.elems[i+1:]...)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Key
	}
	return out
}

// Values returns the values in insertion order.
func (m *Map) Values() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Value
	}
	return out
}

// Interop wraps an opaque host object (InteropInterface variant).
type Interop struct {
	value any
}

func NewInterop(v any) *Interop { return &Interop{value: v} }

func (n *Interop) Type() Type { return InteropT }
func (n *Interop) Value() any { return n.value }
func (n *Interop) Boolean() bool { return true }
func (n *Interop) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: can't convert InteropInterface to ByteString", ErrInvalidType)
}
func (n *Interop) TryInteger() (*big.Int, error) {
	return nil, fmt.Errorf("%w: can't convert InteropInterface to Integer", ErrInvalidType)
}
func (n *Interop) Equals(i Item) bool { return n == i }
func (n *Interop) Dup() Item          { return n }
func (n *Interop) String() string     { return "InteropInterface" }

// Pointer is a code address plus a captured value, used for CALLA/closures.
type Pointer struct {
	Position int
	Script   []byte
}

func NewPointer(pos int, script []byte) *Pointer { return &Pointer{Position: pos, Script: script} }

func (p *Pointer) Type() Type { return PointerT }
func (p *Pointer) Value() any { return p.Position }
func (p *Pointer) Boolean() bool { return true }
func (p *Pointer) TryBytes() ([]byte, error) {
	return nil, fmt.Errorf("%w: can't convert Pointer to ByteString", ErrInvalidType)
}
func (p *Pointer) TryInteger() (*big.Int, error) {
	return nil, fmt.Errorf("%w: can't convert Pointer to Integer", ErrInvalidType)
}
func (p *Pointer) Equals(i Item) bool {
	o, ok := i.(*Pointer)
	return ok && o.Position == p.Position && bytes.Equal(o.Script, p.Script)
}
func (p *Pointer) Dup() Item      { return p }
func (p *Pointer) String() string { return fmt.Sprintf("Pointer(%d)", p.Position) }

// Make converts a native Go value into the closest stack item, used
// pervasively by native-contract methods to box return values.
func Make(v any) Item {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Item:
		return val
	case bool:
		return Bool(val)
	case int:
		return NewBigIntegerFromInt64(int64(val))
	case int64:
		return NewBigIntegerFromInt64(val)
	case uint32:
		return NewBigIntegerFromInt64(int64(val))
	case *big.Int:
		return NewBigIntegerFromBig(val)
	case []byte:
		return NewByteArray(val)
	case string:
		return NewByteArray([]byte(val))
	case []Item:
		return NewArray(val)
	default:
		panic(fmt.Errorf("%w: cannot box %T as a stack item", ErrInvalidType, v))
	}
}

// DeepCopy recursively copies compound items so a script cannot mutate a
// caller's state through a returned reference (Struct already value-copies
// via Dup; this covers Arrays/Maps too when full isolation is needed, e.g.
// across a contract call boundary).
func DeepCopy(item Item, preserveNull bool) Item {
	switch it := item.(type) {
	case Null:
		return it
	case *Array:
		cp := make([]Item, len(it.value))
		for i, v := range it.value {
			cp[i] = DeepCopy(v, preserveNull)
		}
		return NewArray(cp)
	case *Struct:
		return it.Dup()
	case *Map:
		cp := NewMap()
		for _, e := range it.elems {
			cp.Set(DeepCopy(e.Key, preserveNull), DeepCopy(e.Value, preserveNull))
		}
		return cp
	case Buffer:
		b := make(Buffer, len(it))
		copy(b, it)
		return b
	default:
		return item
	}
}
