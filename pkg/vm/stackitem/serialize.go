package stackitem

import (
	"fmt"

	"github.com/nspcc-dev/neo-go-core/pkg/io"
)

// Serialize encodes item into the canonical stack item wire format,
// supporting the round-trip law in spec.md §8 ("deserialize(serialize(s))
// ≡ s" for every serializable type).
func Serialize(item Item) ([]byte, error) {
	w := io.NewBufBinWriter()
	seen := make(map[Item]bool)
	encodeItem(w.BinWriter, item, seen)
	if w.Err != nil {
		return nil, w.Err
	}
	if w.Len() > MaxSize {
		return nil, ErrTooBig
	}
	return w.Bytes(), nil
}

func encodeItem(w *io.BinWriter, item Item, seen map[Item]bool) {
	w.WriteU8(byte(item.Type()))
	switch it := item.(type) {
	case Null:
	case Bool:
		w.WriteB(bool(it))
	case *BigInteger:
		b, _ := it.TryBytes()
		w.WriteVarBytes(b)
	case ByteString:
		w.WriteVarBytes([]byte(it))
	case Buffer:
		w.WriteVarBytes([]byte(it))
	case *Array:
		if seen[item] {
			w.Err = fmt.Errorf("%w: cyclic reference", ErrInvalidValue)
			return
		}
		seen[item] = true
		w.WriteVarUint(uint64(len(it.value)))
		for _, v := range it.value {
			encodeItem(w, v, seen)
		}
		delete(seen, item)
	case *Struct:
		if seen[item] {
			w.Err = fmt.Errorf("%w: cyclic reference", ErrInvalidValue)
			return
		}
		seen[item] = true
		w.WriteVarUint(uint64(len(it.value)))
		for _, v := range it.value {
			encodeItem(w, v, seen)
		}
		delete(seen, item)
	case *Map:
		if seen[item] {
			w.Err = fmt.Errorf("%w: cyclic reference", ErrInvalidValue)
			return
		}
		seen[item] = true
		w.WriteVarUint(uint64(len(it.elems)))
		for _, e := range it.elems {
			encodeItem(w, e.Key, seen)
			encodeItem(w, e.Value, seen)
		}
		delete(seen, item)
	default:
		w.Err = fmt.Errorf("%w: %T is not serializable", ErrInvalidType, item)
	}
}

// Deserialize decodes an item previously produced by Serialize.
func Deserialize(b []byte) (Item, error) {
	r := io.NewBinReaderFromBuf(b)
	item := decodeItem(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return item, nil
}

func decodeItem(r *io.BinReader) Item {
	t := Type(r.ReadU8())
	if r.Err != nil {
		return nil
	}
	switch t {
	case AnyT:
		return Null{}
	case BooleanT:
		return Bool(r.ReadB())
	case IntegerT:
		b := r.ReadVarBytes(MaxBigIntegerSizeBits/8 + 1)
		if r.Err != nil {
			return nil
		}
		return NewBigIntegerFromBig(bytesToBig(b))
	case ByteStringT:
		return ByteString(r.ReadVarBytes(MaxSize))
	case BufferT:
		return Buffer(r.ReadVarBytes(MaxSize))
	case ArrayT, StructT:
		n := r.ReadVarUint()
		items := make([]Item, n)
		for i := range items {
			items[i] = decodeItem(r)
		}
		if t == ArrayT {
			return NewArray(items)
		}
		return NewStruct(items)
	case MapT:
		n := r.ReadVarUint()
		m := NewMap()
		for i := uint64(0); i < n; i++ {
			k := decodeItem(r)
			v := decodeItem(r)
			m.Set(k, v)
		}
		return m
	default:
		r.Err = fmt.Errorf("%w: unknown serialized type tag %d", ErrInvalidType, t)
		return nil
	}
}
