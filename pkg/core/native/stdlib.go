package native

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/mr-tron/base58"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// StdLib is the native contract exposing general-purpose data-format
// helpers to scripts that would otherwise have to reimplement them in
// bytecode (spec.md §4.3 "StdLib").
type StdLib struct {
	md *interop.ContractMD
}

// NewStdLib builds the StdLib native with its fixed method table.
func NewStdLib() *StdLib {
	s := &StdLib{md: interop.NewContractMD("StdLib", StdLibID, HashFromID(StdLibID))}
	str := func(name string, params ...manifest.Parameter) manifest.Method {
		return manifest.Method{Name: name, Parameters: params, ReturnType: "ByteString", Safe: true}
	}
	s.md.AddMethod(interop.MethodAndPrice{Func: s.serialize, RequiredFlags: callflag.None,
		MD: str("serialize", manifest.Parameter{Name: "item", Type: "Any"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.deserialize, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "deserialize", Parameters: []manifest.Parameter{{Name: "data", Type: "ByteString"}}, ReturnType: "Any", Safe: true}})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.jsonSerialize, RequiredFlags: callflag.None,
		MD: str("jsonSerialize", manifest.Parameter{Name: "item", Type: "Any"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.jsonDeserialize, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "jsonDeserialize", Parameters: []manifest.Parameter{{Name: "data", Type: "ByteString"}}, ReturnType: "Any", Safe: true}})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.base64Encode, RequiredFlags: callflag.None,
		MD: str("base64Encode", manifest.Parameter{Name: "data", Type: "ByteString"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.base64Decode, RequiredFlags: callflag.None,
		MD: str("base64Decode", manifest.Parameter{Name: "data", Type: "ByteString"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.base58Encode, RequiredFlags: callflag.None,
		MD: str("base58Encode", manifest.Parameter{Name: "data", Type: "ByteString"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.base58Decode, RequiredFlags: callflag.None,
		MD: str("base58Decode", manifest.Parameter{Name: "data", Type: "ByteString"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.itoa, RequiredFlags: callflag.None,
		MD: str("itoa", manifest.Parameter{Name: "value", Type: "Integer"}, manifest.Parameter{Name: "base", Type: "Integer"})})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.atoi, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "atoi", Parameters: []manifest.Parameter{
			{Name: "value", Type: "String"}, {Name: "base", Type: "Integer"},
		}, ReturnType: "Integer", Safe: true}})
	s.md.AddMethod(interop.MethodAndPrice{Func: s.memoryCompare, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "memoryCompare", Parameters: []manifest.Parameter{
			{Name: "str1", Type: "ByteString"}, {Name: "str2", Type: "ByteString"},
		}, ReturnType: "Integer", Safe: true}})
	return s
}

func (s *StdLib) Metadata() *interop.ContractMD     { return s.md }
func (s *StdLib) Initialize(ic *interop.Context) error   { return nil }
func (s *StdLib) OnPersist(ic *interop.Context) error    { return nil }
func (s *StdLib) PostPersist(ic *interop.Context) error  { return nil }

func (s *StdLib) serialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := stackitem.Serialize(args[0])
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray(b), nil
}

func (s *StdLib) deserialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	return stackitem.Deserialize(b)
}

func (s *StdLib) jsonSerialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	v, err := stackItemToJSON(args[0])
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray(b), nil
}

func (s *StdLib) jsonDeserialize(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return jsonToStackItem(v), nil
}

var errUnsupportedJSONItem = errors.New("stack item can't be JSON-serialized")

func stackItemToJSON(it stackitem.Item) (any, error) {
	switch it.Type() {
	case stackitem.BooleanT:
		return it.Boolean(), nil
	case stackitem.IntegerT:
		n, err := it.TryInteger()
		if err != nil {
			return nil, err
		}
		return n.String(), nil
	case stackitem.ByteStringT, stackitem.BufferT:
		b, err := it.TryBytes()
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.EncodeToString(b), nil
	case stackitem.ArrayT, stackitem.StructT:
		items, _ := it.Value().([]stackitem.Item)
		out := make([]any, len(items))
		for i, v := range items {
			jv, err := stackItemToJSON(v)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case stackitem.AnyT:
		return nil, nil
	default:
		return nil, errUnsupportedJSONItem
	}
}

func jsonToStackItem(v any) stackitem.Item {
	switch t := v.(type) {
	case nil:
		return stackitem.Null{}
	case bool:
		return stackitem.NewBool(t)
	case string:
		return stackitem.NewByteArray([]byte(t))
	case float64:
		return stackitem.NewBigIntegerFromInt64(int64(t))
	case []any:
		items := make([]stackitem.Item, len(t))
		for i, e := range t {
			items[i] = jsonToStackItem(e)
		}
		return stackitem.NewArray(items)
	default:
		return stackitem.Null{}
	}
}

func (s *StdLib) base64Encode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray([]byte(base64.StdEncoding.EncodeToString(b))), nil
}

func (s *StdLib) base64Decode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	out, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray(out), nil
}

func (s *StdLib) base58Encode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray([]byte(base58.Encode(b))), nil
}

func (s *StdLib) base58Decode(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	out, err := base58.Decode(string(b))
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray(out), nil
}

func (s *StdLib) itoa(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	n, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	base, err := bigIntArg(args, 1)
	if err != nil {
		return nil, err
	}
	return stackitem.NewByteArray([]byte(n.Text(int(base.Int64())))), nil
}

func (s *StdLib) atoi(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	str, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	base, err := bigIntArg(args, 1)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(string(str), int(base.Int64()), 64)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBigIntegerFromInt64(n), nil
}

func (s *StdLib) memoryCompare(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	a, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	b, err := args[1].TryBytes()
	if err != nil {
		return nil, err
	}
	return stackitem.NewBigIntegerFromInt64(int64(compareBytes(a, b))), nil
}
