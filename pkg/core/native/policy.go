package native

import (
	"errors"
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

const (
	prefixFeePerByte    = 10
	prefixExecFeeFactor = 18
	prefixStoragePrice  = 19
	prefixRegisterPrice = 13
	prefixBlockedAccount = 15
)

const (
	defaultFeePerByte    = 1000
	defaultExecFeeFactor = 30
	defaultStoragePrice  = 100000
	maxExecFeeFactor     = 100
	maxStoragePrice      = 10000000
)

// PolicyContract is the native contract holding the network-wide fee
// knobs and account blocklist every transaction is checked against
// (spec.md §4.3 "PolicyContract").
type PolicyContract struct {
	md *interop.ContractMD
}

// NewPolicyContract builds the Policy native with its fixed method table.
func NewPolicyContract() *PolicyContract {
	p := &PolicyContract{md: interop.NewContractMD("PolicyContract", PolicyID, HashFromID(PolicyID))}
	p.md.AddMethod(interop.MethodAndPrice{Func: p.getFeePerByte, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getFeePerByte", ReturnType: "Integer", Safe: true}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.getExecFeeFactor, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getExecFeeFactor", ReturnType: "Integer", Safe: true}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.getStoragePrice, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getStoragePrice", ReturnType: "Integer", Safe: true}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.getRegisterPrice, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getRegisterPrice", ReturnType: "Integer", Safe: true}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.isBlocked, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "isBlocked", Parameters: []manifest.Parameter{{Name: "account", Type: "Hash160"}}, ReturnType: "Boolean", Safe: true}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.setFeePerByte, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "setFeePerByte", Parameters: []manifest.Parameter{{Name: "value", Type: "Integer"}}, ReturnType: "Void"}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.setExecFeeFactor, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "setExecFeeFactor", Parameters: []manifest.Parameter{{Name: "value", Type: "Integer"}}, ReturnType: "Void"}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.setStoragePrice, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "setStoragePrice", Parameters: []manifest.Parameter{{Name: "value", Type: "Integer"}}, ReturnType: "Void"}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.blockAccount, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "blockAccount", Parameters: []manifest.Parameter{{Name: "account", Type: "Hash160"}}, ReturnType: "Boolean"}})
	p.md.AddMethod(interop.MethodAndPrice{Func: p.unblockAccount, RequiredFlags: callflag.States,
		MD: manifest.Method{Name: "unblockAccount", Parameters: []manifest.Parameter{{Name: "account", Type: "Hash160"}}, ReturnType: "Boolean"}})
	return p
}

func (p *PolicyContract) Metadata() *interop.ContractMD { return p.md }

func (p *PolicyContract) Initialize(ic *interop.Context) error {
	p.putInt(ic, prefixFeePerByte, defaultFeePerByte)
	p.putInt(ic, prefixExecFeeFactor, defaultExecFeeFactor)
	p.putInt(ic, prefixStoragePrice, defaultStoragePrice)
	p.putInt(ic, prefixRegisterPrice, DefaultRegisterPrice)
	return nil
}

func (p *PolicyContract) OnPersist(ic *interop.Context) error   { return nil }
func (p *PolicyContract) PostPersist(ic *interop.Context) error { return nil }

func (p *PolicyContract) key(prefix byte, suffix []byte) []byte {
	return nep17Key(p.md.ID, prefix, suffix)
}

func (p *PolicyContract) putInt(ic *interop.Context, prefix byte, v int64) {
	ic.DAO.Put(p.key(prefix, nil), big.NewInt(v).Bytes())
}

func (p *PolicyContract) getInt(ic *interop.Context, prefix byte, def int64) *big.Int {
	v, err := ic.DAO.Get(p.key(prefix, nil))
	if err != nil || len(v) == 0 {
		return big.NewInt(def)
	}
	return new(big.Int).SetBytes(v)
}

// FeePerByte is the GAS fractions charged per byte of a transaction's
// serialized size (spec.md §7 "NetworkFee").
func (p *PolicyContract) FeePerByte(ic *interop.Context) *big.Int {
	return p.getInt(ic, prefixFeePerByte, defaultFeePerByte)
}

// ExecFeeFactor is the stored exec-fee-factor setting; the VM's opcode
// pricing does not read it.
func (p *PolicyContract) ExecFeeFactor(ic *interop.Context) *big.Int {
	return p.getInt(ic, prefixExecFeeFactor, defaultExecFeeFactor)
}

// StoragePrice is the stored storage-price setting (GAS fractions per
// byte); System.Storage.Put charges interop.Context.BaseStorageFee and
// does not read it.
func (p *PolicyContract) StoragePrice(ic *interop.Context) *big.Int {
	return p.getInt(ic, prefixStoragePrice, defaultStoragePrice)
}

// RegisterPrice is the GAS NeoToken.registerCandidate burns.
func (p *PolicyContract) RegisterPrice(ic *interop.Context) *big.Int {
	return p.getInt(ic, prefixRegisterPrice, DefaultRegisterPrice)
}

// IsBlocked reports whether account is on the network-wide blocklist;
// transaction verification must reject any transaction touching one
// (spec.md §4.4 "PolicyContract.isBlocked").
func (p *PolicyContract) IsBlocked(ic *interop.Context, account util.Uint160) bool {
	_, err := ic.DAO.Get(p.key(prefixBlockedAccount, account[:]))
	return err == nil
}

func (p *PolicyContract) getFeePerByte(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(p.FeePerByte(ic)), nil
}
func (p *PolicyContract) getExecFeeFactor(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(p.ExecFeeFactor(ic)), nil
}
func (p *PolicyContract) getStoragePrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(p.StoragePrice(ic)), nil
}
func (p *PolicyContract) getRegisterPrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(p.RegisterPrice(ic)), nil
}

func (p *PolicyContract) isBlocked(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	acc, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBool(p.IsBlocked(ic, acc)), nil
}

// Policy setters are gated on callflag.States the same as every other
// state-mutating native method. The real node additionally requires the
// committee's own multisig witness; this core has no multisig
// redeem-script builder (see NeoToken.GenesisAccount's doc comment for
// the same gap), so that extra check is left to whoever wires
// CallNative into a restricted invocation path, an Open Question
// simplification recorded in DESIGN.md.
func (p *PolicyContract) setFeePerByte(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	v, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 || v.Cmp(big.NewInt(100_000_000)) > 0 {
		return nil, errInvalidPolicyValue
	}
	p.putInt(ic, prefixFeePerByte, v.Int64())
	return stackitem.Null{}, nil
}

func (p *PolicyContract) setExecFeeFactor(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	v, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 || v.Cmp(big.NewInt(maxExecFeeFactor)) > 0 {
		return nil, errInvalidPolicyValue
	}
	p.putInt(ic, prefixExecFeeFactor, v.Int64())
	return stackitem.Null{}, nil
}

func (p *PolicyContract) setStoragePrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	v, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 || v.Cmp(big.NewInt(maxStoragePrice)) > 0 {
		return nil, errInvalidPolicyValue
	}
	p.putInt(ic, prefixStoragePrice, v.Int64())
	return stackitem.Null{}, nil
}

func (p *PolicyContract) blockAccount(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	acc, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	if p.IsBlocked(ic, acc) {
		return stackitem.NewBool(false), nil
	}
	ic.DAO.Put(p.key(prefixBlockedAccount, acc[:]), []byte{1})
	return stackitem.NewBool(true), nil
}

func (p *PolicyContract) unblockAccount(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	acc, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	if !p.IsBlocked(ic, acc) {
		return stackitem.NewBool(false), nil
	}
	ic.DAO.Delete(p.key(prefixBlockedAccount, acc[:]))
	return stackitem.NewBool(true), nil
}

var errInvalidPolicyValue = errors.New("policy value out of range")
