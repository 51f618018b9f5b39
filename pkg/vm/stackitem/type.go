package stackitem

// Type is the discriminant of the StackItem sum type (spec.md §3).
type Type byte

// Stack item type tags, matching the Neo VM's wire encoding.
const (
	AnyT          Type = 0x00
	PointerT      Type = 0x10
	BooleanT      Type = 0x20
	IntegerT      Type = 0x21
	ByteStringT   Type = 0x28
	BufferT       Type = 0x30
	ArrayT        Type = 0x40
	StructT       Type = 0x41
	MapT          Type = 0x48
	InteropT      Type = 0x60
)

// String returns a human-readable type name.
func (t Type) String() string {
	switch t {
	case AnyT:
		return "Any"
	case PointerT:
		return "Pointer"
	case BooleanT:
		return "Boolean"
	case IntegerT:
		return "Integer"
	case ByteStringT:
		return "ByteString"
	case BufferT:
		return "Buffer"
	case ArrayT:
		return "Array"
	case StructT:
		return "Struct"
	case MapT:
		return "Map"
	case InteropT:
		return "InteropInterface"
	default:
		return "Unknown"
	}
}

// IsValid returns true for a recognized type tag.
func (t Type) IsValid() bool {
	switch t {
	case AnyT, PointerT, BooleanT, IntegerT, ByteStringT, BufferT, ArrayT, StructT, MapT, InteropT:
		return true
	default:
		return false
	}
}
