package native

import (
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// LedgerContract is the native contract exposing read-only chain
// queries to scripts (spec.md §4.3 "LedgerContract"). It has no storage
// of its own: every query is forwarded to the application engine's
// Ledger (the blockchain), which is what actually persists blocks and
// transactions.
type LedgerContract struct {
	md *interop.ContractMD
}

// NewLedgerContract builds the Ledger native with its fixed method table.
func NewLedgerContract() *LedgerContract {
	l := &LedgerContract{md: interop.NewContractMD("LedgerContract", LedgerID, HashFromID(LedgerID))}
	l.md.AddMethod(interop.MethodAndPrice{Func: l.currentIndex, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "currentIndex", ReturnType: "Integer", Safe: true}})
	l.md.AddMethod(interop.MethodAndPrice{Func: l.currentHash, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "currentHash", ReturnType: "Hash256", Safe: true}})
	l.md.AddMethod(interop.MethodAndPrice{Func: l.getBlock, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getBlock", Parameters: []manifest.Parameter{{Name: "indexOrHash", Type: "ByteString"}}, ReturnType: "Array", Safe: true}})
	l.md.AddMethod(interop.MethodAndPrice{Func: l.getTransaction, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getTransaction", Parameters: []manifest.Parameter{{Name: "hash", Type: "Hash256"}}, ReturnType: "Array", Safe: true}})
	l.md.AddMethod(interop.MethodAndPrice{Func: l.getTransactionHeight, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getTransactionHeight", Parameters: []manifest.Parameter{{Name: "hash", Type: "Hash256"}}, ReturnType: "Integer", Safe: true}})
	return l
}

func (l *LedgerContract) Metadata() *interop.ContractMD   { return l.md }
func (l *LedgerContract) Initialize(ic *interop.Context) error { return nil }
func (l *LedgerContract) OnPersist(ic *interop.Context) error   { return nil }
func (l *LedgerContract) PostPersist(ic *interop.Context) error { return nil }

func (l *LedgerContract) currentIndex(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigIntegerFromInt64(int64(ic.BlockHeight())), nil
}

func (l *LedgerContract) currentHash(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	h := ic.CurrentBlockHash()
	return stackitem.NewByteArray(h[:]), nil
}

var errInvalidBlockReference = errors.New("getBlock: expected a 4-byte index or 32-byte hash")

func (l *LedgerContract) getBlock(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	var index uint32
	switch len(b) {
	case 4:
		index = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	case util.Uint256Size:
		return nil, errors.New("getBlock: lookup by hash requires a height index in this core")
	default:
		return nil, errInvalidBlockReference
	}
	blk, err := ic.GetBlock(index)
	if err != nil {
		return stackitem.Null{}, nil
	}
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(blk.Hash().BytesBE()),
		stackitem.NewBigIntegerFromInt64(int64(blk.Version)),
		stackitem.NewByteArray(blk.PrevHash.BytesBE()),
		stackitem.NewByteArray(blk.MerkleRoot.BytesBE()),
		stackitem.NewBigIntegerFromInt64(int64(blk.Timestamp)),
		stackitem.NewBigIntegerFromInt64(int64(blk.Index)),
		stackitem.NewBigIntegerFromInt64(int64(len(blk.Transactions))),
	}), nil
}

func (l *LedgerContract) getTransaction(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	h, err := util.Uint256DecodeBytesBE(b)
	if err != nil {
		return nil, err
	}
	tx, _, err := ic.GetTransaction(h)
	if err != nil {
		return stackitem.Null{}, nil
	}
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(tx.Hash().BytesBE()),
		stackitem.NewBigIntegerFromInt64(int64(tx.Version)),
		stackitem.NewBigIntegerFromInt64(int64(tx.Nonce)),
		stackitem.NewByteArray(tx.Sender().BytesBE()),
		stackitem.NewBigIntegerFromInt64(tx.SystemFee),
		stackitem.NewBigIntegerFromInt64(tx.NetworkFee),
		stackitem.NewBigIntegerFromInt64(int64(tx.ValidUntilBlock)),
		stackitem.NewByteArray(tx.Script),
	}), nil
}

func (l *LedgerContract) getTransactionHeight(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	h, err := util.Uint256DecodeBytesBE(b)
	if err != nil {
		return nil, err
	}
	_, height, err := ic.GetTransaction(h)
	if err != nil {
		return stackitem.NewBigIntegerFromInt64(-1), nil
	}
	return stackitem.NewBigIntegerFromInt64(int64(height)), nil
}
