package native

import (
	"errors"
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/runtime"
	"github.com/nspcc-dev/neo-go-core/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// GASFactor is GAS's decimal scale: 8 fractional digits (spec.md §4.3
// "GasToken ... decimals=8").
const GASFactor = 100000000

// GasToken is the native GAS utility token: fees are burned from
// senders and minted to the block's primary node OnPersist, and a
// NEO-holder bonus is minted PostPersist (spec.md §4.3 "GAS token
// distribution").
type GasToken struct {
	md     *interop.ContractMD
	Policy *PolicyContract
	Neo    *NeoToken
}

// NewGasToken builds the GAS native with its fixed method table.
func NewGasToken() *GasToken {
	g := &GasToken{md: interop.NewContractMD("GasToken", GasTokenID, HashFromID(GasTokenID))}
	g.md.AddMethod(interop.MethodAndPrice{
		Func: g.symbol, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "symbol", ReturnType: "ByteString", Safe: true},
	})
	g.md.AddMethod(interop.MethodAndPrice{
		Func: g.decimals, RequiredFlags: callflag.None,
		MD: manifest.Method{Name: "decimals", ReturnType: "Integer", Safe: true},
	})
	g.md.AddMethod(interop.MethodAndPrice{
		Func: g.totalSupply, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "totalSupply", ReturnType: "Integer", Safe: true},
	})
	g.md.AddMethod(interop.MethodAndPrice{
		Func: g.balanceOf, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "balanceOf", Parameters: []manifest.Parameter{{Name: "account", Type: "ByteString"}}, ReturnType: "Integer", Safe: true},
	})
	g.md.AddMethod(interop.MethodAndPrice{
		Func: g.transfer, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "transfer", Parameters: []manifest.Parameter{
			{Name: "from", Type: "ByteString"}, {Name: "to", Type: "ByteString"},
			{Name: "amount", Type: "Integer"}, {Name: "data", Type: "Any"},
		}, ReturnType: "Boolean"},
	})
	g.md.AddEvent(interop.Event{MD: manifest.Event{Name: "Transfer", Parameters: []manifest.Parameter{
		{Name: "from", Type: "ByteString"}, {Name: "to", Type: "ByteString"}, {Name: "amount", Type: "Integer"},
	}}})
	return g
}

func (g *GasToken) Metadata() *interop.ContractMD { return g.md }

func (g *GasToken) Initialize(ic *interop.Context) error {
	nep17SetTotalSupply(ic, g.md.ID, big.NewInt(0))
	return nil
}

func (g *GasToken) symbol(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewByteArray([]byte("GAS")), nil
}

func (g *GasToken) decimals(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigIntegerFromInt64(8), nil
}

func (g *GasToken) totalSupply(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigInteger(nep17TotalSupply(ic, g.md.ID)), nil
}

func (g *GasToken) balanceOf(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	acc, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	return stackitem.NewBigInteger(g.Balance(ic, acc)), nil
}

// Balance reads account's raw GAS balance.
func (g *GasToken) Balance(ic *interop.Context, account util.Uint160) *big.Int {
	v, err := ic.DAO.Get(nep17Key(g.md.ID, prefixNEP17Account, account[:]))
	if err != nil {
		return big.NewInt(0)
	}
	return bigint.FromBytes(v)
}

func (g *GasToken) setBalance(ic *interop.Context, account util.Uint160, v *big.Int) {
	if v.Sign() == 0 {
		ic.DAO.Delete(nep17Key(g.md.ID, prefixNEP17Account, account[:]))
		return
	}
	ic.DAO.Put(nep17Key(g.md.ID, prefixNEP17Account, account[:]), bigint.ToBytes(v))
}

var errInsufficientBalance = errors.New("insufficient GAS balance")

// Mint credits amount of GAS to account, growing total supply.
func (g *GasToken) Mint(ic *interop.Context, account util.Uint160, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	bal := g.Balance(ic, account)
	bal.Add(bal, amount)
	g.setBalance(ic, account, bal)
	nep17SetTotalSupply(ic, g.md.ID, new(big.Int).Add(nep17TotalSupply(ic, g.md.ID), amount))
	notifyTransfer(ic, g.md.Hash, util.Uint160{}, account, amount)
}

// Burn debits amount of GAS from account, shrinking total supply. It
// faults (returns an error) if the account can't cover it, the same way
// insufficient-funds is treated as a transaction-rejection condition
// elsewhere in the pipeline (spec.md §7 "InsufficientFunds").
func (g *GasToken) Burn(ic *interop.Context, account util.Uint160, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal := g.Balance(ic, account)
	if bal.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	bal.Sub(bal, amount)
	g.setBalance(ic, account, bal)
	nep17SetTotalSupply(ic, g.md.ID, new(big.Int).Sub(nep17TotalSupply(ic, g.md.ID), amount))
	notifyTransfer(ic, g.md.Hash, account, util.Uint160{}, amount)
	return nil
}

func (g *GasToken) transfer(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	from, err := accountArg(args, 0)
	if err != nil {
		return nil, err
	}
	to, err := accountArg(args, 1)
	if err != nil {
		return nil, err
	}
	amount, err := bigIntArg(args, 2)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, errNegativeAmount
	}
	ok, err := runtime.CheckWitness(ic, from[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return stackitem.NewBool(false), nil
	}
	bal := g.Balance(ic, from)
	if bal.Cmp(amount) < 0 {
		return stackitem.NewBool(false), nil
	}
	if from != to {
		bal.Sub(bal, amount)
		g.setBalance(ic, from, bal)
		toBal := g.Balance(ic, to)
		toBal.Add(toBal, amount)
		g.setBalance(ic, to, toBal)
	}
	notifyTransfer(ic, g.md.Hash, from, to, amount)
	return stackitem.NewBool(true), nil
}

// OnPersist burns every transaction's system+network fee from its
// sender and mints the summed network fee to the block's primary
// consensus node (spec.md §4.3 "GAS token distribution").
func (g *GasToken) OnPersist(ic *interop.Context) error {
	if ic.Block == nil {
		return nil
	}
	var reward big.Int
	for _, tx := range ic.Block.Transactions {
		fee := new(big.Int).Add(big.NewInt(tx.SystemFee), big.NewInt(tx.NetworkFee))
		if err := g.Burn(ic, tx.Sender(), fee); err != nil {
			return err
		}
		reward.Add(&reward, big.NewInt(tx.NetworkFee))
	}
	if reward.Sign() > 0 {
		primary := g.Neo.PrimaryAccount(ic)
		g.Mint(ic, primary, &reward)
	}
	return nil
}

// PostPersist mints the per-block NEO-holder GAS bonus (NeoToken's
// configured schedule) and feeds it into candidate GasPerVote
// accounting (spec.md §4.3 "PostPersist: mint NEO-holder base GAS").
func (g *GasToken) PostPersist(ic *interop.Context) error {
	if g.Neo == nil || ic.Block == nil {
		return nil
	}
	amount := g.Neo.GasPerBlock(ic)
	if amount.Sign() <= 0 {
		return nil
	}
	nep17SetTotalSupply(ic, g.md.ID, new(big.Int).Add(nep17TotalSupply(ic, g.md.ID), amount))
	return g.Neo.DistributeGasPerVote(ic, amount)
}
