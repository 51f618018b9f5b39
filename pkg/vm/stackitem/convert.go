package stackitem

import "fmt"

// ConvertTo converts item to the target type per the fixed conversion
// table (spec.md §3): every variant can attempt conversion to every other
// type; impossible/out-of-range conversions raise a VM fault (returned
// here as an error, wrapped into a fault by the engine).
func ConvertTo(item Item, target Type) (Item, error) {
	if item.Type() == target {
		return item, nil
	}
	switch target {
	case AnyT:
		return item, nil
	case BooleanT:
		return Bool(item.Boolean()), nil
	case IntegerT:
		n, err := item.TryInteger()
		if err != nil {
			return nil, err
		}
		return NewBigInteger(n), nil
	case ByteStringT:
		b, err := item.TryBytes()
		if err != nil {
			return nil, err
		}
		return NewByteArray(b), nil
	case BufferT:
		b, err := item.TryBytes()
		if err != nil {
			return nil, err
		}
		return NewBuffer(append([]byte(nil), b...)), nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %s to %s", ErrInvalidType, item.Type(), target)
	}
}
