// Package interop is the application engine: the host environment a
// script's SYSCALL instructions reach into, tying the VM to the ledger,
// DAO, native contracts and notification log (spec.md §4.2
// "Application engine").
package interop

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go-core/pkg/core/block"
	"github.com/nspcc-dev/neo-go-core/pkg/core/dao"
	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// Ledger is the subset of blockchain state the application engine needs
// to answer runtime queries (current height/hash, historical blocks) and
// to look up deployed contracts, without this package importing the
// blockchain package (which itself depends on interop).
type Ledger interface {
	BlockHeight() uint32
	CurrentBlockHash() util.Uint256
	GetBlock(index uint32) (*block.Block, error)
	GetContract(hash util.Uint160) (*state.Contract, error)
	GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, error)
	IsTraceableBlock(index uint32) bool
}

// Context is the per-invocation application engine state threaded
// through every syscall (spec.md §4.2): the triggering transaction or
// block, the DAO snapshot being mutated, accumulated notifications, and
// the VM driving execution.
type Context struct {
	Chain         Ledger
	Network       uint32
	Natives       []Contract
	Trigger       trigger.Type
	Block         *block.Block
	Tx            *transaction.Transaction
	DAO           *dao.Simple
	Notifications []state.NotificationEvent
	Log           *zap.Logger

	VM        *vm.VM
	Functions []Function

	baseExecFee    int64
	baseStorageFee int64
	signers        []transaction.Signer

	// GetRandomCounter is folded into each System.Runtime.GetRandom call
	// so repeated calls within one invocation never repeat a value.
	GetRandomCounter uint64

	cancelFuncs []context.CancelFunc
}

// NewContext builds an application engine context for a single
// invocation under the given trigger.
func NewContext(chain Ledger, network uint32, d *dao.Simple, trig trigger.Type, log *zap.Logger) *Context {
	return &Context{
		Chain:          chain,
		Network:        network,
		DAO:            d,
		Trigger:        trig,
		Log:            log,
		baseExecFee:    30,
		baseStorageFee: 100000,
	}
}

// UseSigners overrides the signer set used by CheckWitness, taking
// precedence over Tx.Signers.
func (ic *Context) UseSigners(s []transaction.Signer) { ic.signers = s }

// Signers returns the active signer set for this invocation.
func (ic *Context) Signers() []transaction.Signer {
	if ic.signers != nil {
		return ic.signers
	}
	if ic.Tx != nil {
		return ic.Tx.Signers
	}
	return nil
}

// BaseExecFee returns the price of one unit of opcode gas, GAS fractions
// per opcodePrice point (spec.md §4.2 "ExecFeeFactor").
func (ic *Context) BaseExecFee() int64 { return ic.baseExecFee }

// BaseStorageFee returns the GAS fractions charged per byte stored by
// System.Storage.Put.
func (ic *Context) BaseStorageFee() int64 { return ic.baseStorageFee }

// BlockHeight returns the height of the last persisted block, or the
// block currently being persisted if one is set.
func (ic *Context) BlockHeight() uint32 {
	if ic.Block != nil {
		return ic.Block.Index
	}
	return ic.Chain.BlockHeight()
}

// CurrentBlockHash returns the hash backing BlockHeight.
func (ic *Context) CurrentBlockHash() util.Uint256 {
	if ic.Block != nil {
		return ic.Block.Hash()
	}
	return ic.Chain.CurrentBlockHash()
}

// GetBlock fetches a historical block by index, consulting the
// in-progress block first so OnPersist/PostPersist see it before commit.
func (ic *Context) GetBlock(index uint32) (*block.Block, error) {
	if ic.Block != nil && ic.Block.Index == index {
		return ic.Block, nil
	}
	return ic.Chain.GetBlock(index)
}

// GetTransaction fetches a historical transaction by hash, consulting
// the in-progress block first so OnPersist/PostPersist see it before
// commit.
func (ic *Context) GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, error) {
	if ic.Block != nil {
		for _, tx := range ic.Block.Transactions {
			if tx.Hash() == h {
				return tx, ic.Block.Index, nil
			}
		}
	}
	return ic.Chain.GetTransaction(h)
}

// GetContract resolves a deployed contract (native or user) by hash.
func (ic *Context) GetContract(hash util.Uint160) (*state.Contract, error) {
	for _, n := range ic.Natives {
		md := n.Metadata()
		if md.Hash == hash {
			return md.AsContractState(), nil
		}
	}
	return ic.Chain.GetContract(hash)
}

// SignedData returns the bytes a witness must sign over: the current
// transaction's unsigned data, or the calling script's container when
// running under the Verification trigger for something other than a
// transaction.
func (ic *Context) SignedData() []byte {
	if ic.Tx != nil {
		return ic.Tx.HashableData()
	}
	if ic.Block != nil {
		return ic.Block.HashableData()
	}
	return nil
}

// AddNotification records a Notify event (spec.md §4.2 "Notify").
func (ic *Context) AddNotification(script util.Uint160, name string, item *stackitem.Array) {
	ic.Notifications = append(ic.Notifications, state.NotificationEvent{
		ScriptHash: script,
		Name:       name,
		Item:       item,
	})
}

// RegisterCancelFunc remembers a cleanup callback run by Finalize; used
// by syscalls that open resources (iterators, sub-VMs) outliving a
// single SyscallHandler call.
func (ic *Context) RegisterCancelFunc(f context.CancelFunc) { ic.cancelFuncs = append(ic.cancelFuncs, f) }

// Finalize runs every registered cancel func, in reverse registration
// order, once the top-level invocation completes.
func (ic *Context) Finalize() {
	for i := len(ic.cancelFuncs) - 1; i >= 0; i-- {
		ic.cancelFuncs[i]()
	}
	ic.cancelFuncs = nil
}

// ErrSyscallNotFound is returned by SyscallHandler when the SYSCALL
// immediate doesn't match any registered Function.
var ErrSyscallNotFound = errors.New("syscall not found")

// ErrMissingCallFlag is returned when the current context's call flags
// don't grant what a syscall requires.
var ErrMissingCallFlag = errors.New("missing required call flag")

// GetFunction finds a registered syscall by its 32-bit id via binary
// search; Functions must be kept sorted by ID (see Sort).
func (ic *Context) GetFunction(id uint32) *Function {
	n := len(ic.Functions)
	i := sortSearch(n, func(i int) bool { return ic.Functions[i].ID >= id })
	if i < n && ic.Functions[i].ID == id {
		return &ic.Functions[i]
	}
	return nil
}

// SyscallHandler is the vm.VM's Syscall hook: it resolves the 32-bit
// syscall id pushed by the SYSCALL opcode, checks the invoking
// context's call flags, charges gas, and invokes the handler.
func (ic *Context) SyscallHandler(v *vm.VM, id uint32) error {
	f := ic.GetFunction(id)
	if f == nil {
		return fmt.Errorf("%w: id %08x", ErrSyscallNotFound, id)
	}
	if !v.CallFlags().Has(f.RequiredFlags) {
		return fmt.Errorf("%w: %s needs %s, have %s", ErrMissingCallFlag, f.Name, f.RequiredFlags, v.CallFlags())
	}
	if err := v.AddGas(f.Price); err != nil {
		return err
	}
	return f.Func(ic)
}

// Function is one entry of the syscall registry: a dotted name, its
// content-addressed id, the handler, its fixed gas price, and the call
// flags it requires (spec.md §4.2).
type Function struct {
	ID            uint32
	Name          string
	Func          func(*Context) error
	ParamCount    int
	Price         int64
	RequiredFlags callflag.CallFlag
}

// Sort orders fs by ID, the invariant GetFunction's binary search relies
// on.
func Sort(fs []Function) {
	for i := 1; i < len(fs); i++ {
		for j := i; j > 0 && fs[j-1].ID > fs[j].ID; j-- {
			fs[j-1], fs[j] = fs[j], fs[j-1]
		}
	}
}

func sortSearch(n int, f func(int) bool) int {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if !f(mid) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
