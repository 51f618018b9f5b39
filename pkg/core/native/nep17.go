package native

import (
	"errors"
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// errNegativeAmount is shared by every NEP-17 transfer method: amounts
// are unsigned by protocol, a negative argument is a caller error.
var errNegativeAmount = errors.New("negative transfer amount")

// Storage prefixes shared by every NEP-17 native (NeoToken, GasToken),
// mirroring the real node's fixed on-disk layout (spec.md §6 "reserved
// prefixes per native are stable across versions").
const (
	prefixNEP17Account     = 20
	prefixNEP17TotalSupply = 11
)

func nep17Key(contractID int32, prefix byte, suffix []byte) []byte {
	key := make([]byte, 0, 1+len(suffix))
	key = append(key, prefix)
	key = append(key, suffix...)
	return state.StorageKey{ID: contractID, Key: key}.Bytes()
}

// nep17TotalSupply reads the running total-supply counter.
func nep17TotalSupply(ic *interop.Context, contractID int32) *big.Int {
	v, err := ic.DAO.Get(nep17Key(contractID, prefixNEP17TotalSupply, nil))
	if err != nil {
		return big.NewInt(0)
	}
	return bigint.FromBytes(v)
}

func nep17SetTotalSupply(ic *interop.Context, contractID int32, v *big.Int) {
	ic.DAO.Put(nep17Key(contractID, prefixNEP17TotalSupply, nil), bigint.ToBytes(v))
}

// notifyTransfer records a Transfer(from, to, amount) event the way
// every NEP-17 token must (spec.md §8 scenario 2 "a Transfer
// notification with args (A, B, 30)"). from/to may be the zero hash for
// mint/burn.
func notifyTransfer(ic *interop.Context, tokenHash util.Uint160, from, to util.Uint160, amount *big.Int) {
	ic.AddNotification(tokenHash, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteArray(from[:]),
		stackitem.NewByteArray(to[:]),
		stackitem.NewBigInteger(new(big.Int).Set(amount)),
	}))
}

func accountArg(args []stackitem.Item, i int) (util.Uint160, error) {
	b, err := args[i].TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesLE(b)
}

func bigIntArg(args []stackitem.Item, i int) (*big.Int, error) {
	return args[i].TryInteger()
}
