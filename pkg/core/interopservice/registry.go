package interopservice

import (
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/contractsys"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/cryptosys"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/interopnames"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/iterator"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/runtime"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/storagesys"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

func named(name string, flags callflag.CallFlag, price int64, paramCount int, f func(*interop.Context) error) interop.Function {
	return interop.Function{
		ID:            interopnames.ToHash(name),
		Name:          name,
		Func:          f,
		ParamCount:    paramCount,
		Price:         price,
		RequiredFlags: flags,
	}
}

// popItem/popBytes/popString/popBool/popArray mirror the VM's own pop helpers but
// operate through the public Estack so interop handlers, which live
// outside package vm, can pull their own arguments.
func popItem(ic *interop.Context) (stackitem.Item, error) { return ic.VM.Estack().Pop() }

func popBytes(ic *interop.Context) ([]byte, error) {
	it, err := popItem(ic)
	if err != nil {
		return nil, err
	}
	return it.TryBytes()
}

func popString(ic *interop.Context) (string, error) {
	b, err := popBytes(ic)
	return string(b), err
}

func popBool(ic *interop.Context) (bool, error) {
	it, err := popItem(ic)
	if err != nil {
		return false, err
	}
	return it.Boolean(), nil
}

func popArray(ic *interop.Context) ([]stackitem.Item, error) {
	it, err := popItem(ic)
	if err != nil {
		return nil, err
	}
	switch v := it.(type) {
	case *stackitem.Array:
		return v.Value().([]stackitem.Item), nil
	case *stackitem.Struct:
		return v.Value().([]stackitem.Item), nil
	default:
		return nil, errNotArray
	}
}

var errNotArray = errNotArrayErr{}

type errNotArrayErr struct{}

func (errNotArrayErr) Error() string { return "expected array-like stack item" }

func push(ic *interop.Context, it stackitem.Item) error { return ic.VM.Estack().Push(it) }

// DefaultFunctions builds the syscall registry every application engine
// Context shares: the System.Runtime/Storage/Contract/Crypto/Iterator
// families (spec.md §4.2). Callers assign it to a Context's Functions
// field, already sorted by ID.
func DefaultFunctions() []interop.Function {
	fs := []interop.Function{
		named(interopnames.SystemRuntimeCheckWitness, callflag.None, 1<<10, 1, func(ic *interop.Context) error {
			b, err := popBytes(ic)
			if err != nil {
				return err
			}
			ok, err := runtime.CheckWitness(ic, b)
			if err != nil {
				return err
			}
			return push(ic, stackitem.NewBool(ok))
		}),
		named(interopnames.SystemRuntimeNotify, callflag.AllowNotify, 1<<15, 2, func(ic *interop.Context) error {
			args, err := popArray(ic)
			if err != nil {
				return err
			}
			name, err := popString(ic)
			if err != nil {
				return err
			}
			return runtime.Notify(ic, name, stackitem.NewArray(args))
		}),
		named(interopnames.SystemRuntimeLog, callflag.AllowNotify, 1<<15, 1, func(ic *interop.Context) error {
			msg, err := popString(ic)
			if err != nil {
				return err
			}
			return runtime.Log(ic, msg)
		}),
		named(interopnames.SystemRuntimeGetTime, callflag.ReadStates, 1<<3, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewBigIntegerFromInt64(int64(runtime.GetTime(ic))))
		}),
		named(interopnames.SystemRuntimeGetRandom, callflag.None, 1<<4, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewBigInteger(runtime.GetRandom(ic)))
		}),
		named(interopnames.SystemRuntimeGetTrigger, callflag.None, 1<<3, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewBigIntegerFromInt64(int64(ic.Trigger)))
		}),
		named(interopnames.SystemRuntimeGetNetwork, callflag.None, 1<<3, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewBigIntegerFromInt64(int64(ic.Network)))
		}),
		named(interopnames.SystemRuntimePlatform, callflag.None, 1<<3, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewByteArray([]byte("NEO")))
		}),
		named(interopnames.SystemRuntimeGasLeft, callflag.None, 1<<4, 0, func(ic *interop.Context) error {
			left := ic.VM.GasLimit - ic.VM.GasConsumed()
			return push(ic, stackitem.NewBigIntegerFromInt64(left))
		}),
		named(interopnames.SystemRuntimeGetNotifications, callflag.None, 1<<12, 1, func(ic *interop.Context) error {
			filterItem, err := popItem(ic)
			if err != nil {
				return err
			}
			var filter *util.Uint160
			if _, isNull := filterItem.(stackitem.Null); !isNull {
				b, err := filterItem.TryBytes()
				if err == nil && len(b) == util.Uint160Size {
					var h util.Uint160
					copy(h[:], b)
					filter = &h
				}
			}
			items := make([]stackitem.Item, 0, len(ic.Notifications))
			for _, n := range ic.Notifications {
				if filter != nil && n.ScriptHash != *filter {
					continue
				}
				items = append(items, stackitem.NewStruct([]stackitem.Item{
					stackitem.NewByteArray(n.ScriptHash[:]),
					stackitem.NewByteArray([]byte(n.Name)),
					n.Item,
				}))
			}
			return push(ic, stackitem.NewArray(items))
		}),

		named(interopnames.SystemStorageGetContext, callflag.ReadStates, 1<<4, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewInterop(storagesys.GetContext(ic)))
		}),
		named(interopnames.SystemStorageGetReadOnlyContext, callflag.ReadStates, 1<<4, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewInterop(storagesys.GetReadOnlyContext(ic)))
		}),
		named(interopnames.SystemStorageAsReadOnly, callflag.ReadStates, 1<<4, 1, func(ic *interop.Context) error {
			it, err := popItem(ic)
			if err != nil {
				return err
			}
			c := it.Value().(*storagesys.Context)
			return push(ic, stackitem.NewInterop(storagesys.AsReadOnly(c)))
		}),
		named(interopnames.SystemStorageGet, callflag.ReadStates, 1<<15, 2, func(ic *interop.Context) error {
			key, err := popBytes(ic)
			if err != nil {
				return err
			}
			cit, err := popItem(ic)
			if err != nil {
				return err
			}
			c := cit.Value().(*storagesys.Context)
			v, err := storagesys.Get(ic, c, key)
			if err != nil {
				return err
			}
			return push(ic, v)
		}),
		named(interopnames.SystemStoragePut, callflag.WriteStates, 1<<15, 3, func(ic *interop.Context) error {
			value, err := popBytes(ic)
			if err != nil {
				return err
			}
			key, err := popBytes(ic)
			if err != nil {
				return err
			}
			cit, err := popItem(ic)
			if err != nil {
				return err
			}
			c := cit.Value().(*storagesys.Context)
			return storagesys.Put(ic, c, key, value)
		}),
		named(interopnames.SystemStorageDelete, callflag.WriteStates, 1<<15, 2, func(ic *interop.Context) error {
			key, err := popBytes(ic)
			if err != nil {
				return err
			}
			cit, err := popItem(ic)
			if err != nil {
				return err
			}
			c := cit.Value().(*storagesys.Context)
			return storagesys.Delete(ic, c, key)
		}),
		named(interopnames.SystemStorageFind, callflag.ReadStates, 1<<15, 2, func(ic *interop.Context) error {
			opts, err := popItem(ic)
			if err != nil {
				return err
			}
			optsInt, err := opts.TryInteger()
			if err != nil {
				return err
			}
			prefix, err := popBytes(ic)
			if err != nil {
				return err
			}
			cit, err := popItem(ic)
			if err != nil {
				return err
			}
			c := cit.Value().(*storagesys.Context)
			entries := storagesys.Find(ic, c, prefix, storagesys.FindOptions(optsInt.Int64()))
			keys := make([][]byte, len(entries))
			values := make([][]byte, len(entries))
			for i, e := range entries {
				keys[i], values[i] = e.Key, e.Value
			}
			return push(ic, stackitem.NewInterop(iterator.New(keys, values)))
		}),

		named(interopnames.SystemContractCall, callflag.ReadStates|callflag.AllowCall, 1<<15, 4, func(ic *interop.Context) error {
			args, err := popArray(ic)
			if err != nil {
				return err
			}
			flagsIt, err := popItem(ic)
			if err != nil {
				return err
			}
			flagsInt, err := flagsIt.TryInteger()
			if err != nil {
				return err
			}
			method, err := popString(ic)
			if err != nil {
				return err
			}
			hashBytes, err := popBytes(ic)
			if err != nil {
				return err
			}
			var target util.Uint160
			copy(target[:], hashBytes)
			return contractsys.Call(ic, target, method, callflag.CallFlag(flagsInt.Int64()), args)
		}),
		named(interopnames.SystemContractGetCallFlags, callflag.None, 1<<10, 0, func(ic *interop.Context) error {
			return push(ic, stackitem.NewBigIntegerFromInt64(int64(contractsys.GetCallFlags(ic))))
		}),
		named(interopnames.SystemContractCreateStandard, callflag.None, 1<<15, 1, func(ic *interop.Context) error {
			pub, err := popBytes(ic)
			if err != nil {
				return err
			}
			h, err := contractsys.CreateStandardAccount(pub)
			if err != nil {
				return err
			}
			return push(ic, stackitem.NewByteArray(h[:]))
		}),

		named(interopnames.SystemCryptoCheckSig, callflag.None, 1<<15, 2, func(ic *interop.Context) error {
			// The verification script pushes the pubkey last (it runs
			// after the invocation script that pushed the signature), so
			// the pubkey is on top of the stack at syscall time.
			pub, err := popBytes(ic)
			if err != nil {
				return err
			}
			sig, err := popBytes(ic)
			if err != nil {
				return err
			}
			ok := cryptosys.CheckSig(pub, sig, ic.SignedData())
			return push(ic, stackitem.NewBool(ok))
		}),
		named(interopnames.SystemCryptoCheckMultisig, callflag.None, 1<<17, 2, func(ic *interop.Context) error {
			pubArgs, err := popArray(ic)
			if err != nil {
				return err
			}
			sigArgs, err := popArray(ic)
			if err != nil {
				return err
			}
			sigs := make([][]byte, len(sigArgs))
			for i, s := range sigArgs {
				sigs[i], _ = s.TryBytes()
			}
			pubs := make([][]byte, len(pubArgs))
			for i, p := range pubArgs {
				pubs[i], _ = p.TryBytes()
			}
			ok := cryptosys.CheckMultisig(pubs, sigs, ic.SignedData())
			return push(ic, stackitem.NewBool(ok))
		}),

		named(interopnames.SystemIteratorNext, callflag.None, 1<<15, 1, func(ic *interop.Context) error {
			it, err := popItem(ic)
			if err != nil {
				return err
			}
			iter := it.Value().(*iterator.Iterator)
			return push(ic, stackitem.NewBool(iter.Next()))
		}),
		named(interopnames.SystemIteratorValue, callflag.None, 1<<4, 1, func(ic *interop.Context) error {
			it, err := popItem(ic)
			if err != nil {
				return err
			}
			iter := it.Value().(*iterator.Iterator)
			return push(ic, iter.Value())
		}),
	}
	interop.Sort(fs)
	return fs
}
