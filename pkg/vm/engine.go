// Package vm implements the Neo execution engine: a stack machine running
// over the polymorphic stackitem.Item heap, with deterministic gas
// metering and try/catch/finally exception handling (spec.md §3, §4.1).
package vm

import (
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/opcode"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/vmstate"
)

// MaxInvocationStackDepth bounds CALL recursion (spec.md §4.1 edge cases).
const MaxInvocationStackDepth = 1024

// MaxStackSize is the evaluation stack's nominal item cap; Stack.Push and
// Stack.Insert do not check it.
const MaxStackSize = 2048

// SyscallFunc dispatches a resolved syscall ID against the host
// environment; wired in by pkg/core/interop, kept decoupled here so the
// engine has no import-time dependency on the application layer.
type SyscallFunc func(v *VM, id uint32) error

// VM is a single execution engine instance: one invocation stack, one
// shared evaluation stack, and the gas/refcount budgets for the run.
type VM struct {
	istack []*Context
	estack *Stack
	refs   *stackitem.RefCounter

	state      vmstate.State
	uncaught   stackitem.Item
	gasConsumed int64
	GasLimit    int64

	Syscall SyscallFunc
}

// New creates an empty VM with the default reference-counter caps and no
// gas limit (callers needing metering must set GasLimit before Run).
func New() *VM {
	refs := stackitem.NewRefCounter()
	return &VM{
		estack: NewStack(refs),
		refs:   refs,
	}
}

// State returns the engine's current run state.
func (v *VM) State() vmstate.State { return v.state }

// GasConsumed returns the cumulative gas spent so far.
func (v *VM) GasConsumed() int64 { return v.gasConsumed }

// FaultException returns the uncaught exception item that caused a FAULT,
// if any (spec.md §4.1 "uncaught THROW propagates as the fault reason").
func (v *VM) FaultException() stackitem.Item { return v.uncaught }

// Estack exposes the shared evaluation stack (used by interop functions
// to read/push arguments and results).
func (v *VM) Estack() *Stack { return v.estack }

// Context returns the currently executing frame, or nil if the
// invocation stack is empty.
func (v *VM) Context() *Context {
	if len(v.istack) == 0 {
		return nil
	}
	return v.istack[len(v.istack)-1]
}

// CallFlags returns the call flags the currently executing frame holds.
func (v *VM) CallFlags() callflag.CallFlag {
	if c := v.Context(); c != nil {
		return c.callFlags
	}
	return callflag.None
}

// LoadScript pushes a fresh invocation frame running script with the
// given call flags, becoming the new current context.
func (v *VM) LoadScript(script *Script, flags callflag.CallFlag) error {
	if len(v.istack) >= MaxInvocationStackDepth {
		return newFault(0, "LOADSCRIPT", "invocation stack depth exceeded")
	}
	ctx := NewContext(script)
	ctx.callFlags = flags
	if len(v.istack) > 0 {
		ctx.callingFrame = v.istack[len(v.istack)-1]
	}
	v.istack = append(v.istack, ctx)
	return nil
}

// AddGas charges cost against the run's gas limit, faulting the engine
// if it would be exceeded (spec.md §4.1 "gas exhaustion faults the
// engine deterministically").
func (v *VM) AddGas(cost int64) error {
	v.gasConsumed += cost
	if v.GasLimit > 0 && v.gasConsumed > v.GasLimit {
		return newFault(v.curIP(), "GAS", "insufficient gas")
	}
	return nil
}

func (v *VM) curIP() int {
	if c := v.Context(); c != nil {
		return c.ip
	}
	return -1
}

// Run executes until the engine halts, faults, or hits a breakpoint.
func (v *VM) Run() vmstate.State {
	if v.state == vmstate.None {
		v.state = vmstate.None
	}
	for v.state == vmstate.None {
		v.Step()
	}
	return v.state
}

// Step executes a single instruction. Any internal panic (from stackitem
// conversions, arithmetic overflow, or an explicit ABORT/THROW) is
// recovered and turned into a FAULT rather than crashing the host
// process, matching "a misbehaving contract can only fault its own run."
func (v *VM) Step() {
	defer func() {
		if r := recover(); r != nil {
			v.fault(r)
		}
	}()
	ctx := v.Context()
	if ctx == nil {
		v.state = vmstate.Halt
		return
	}
	op, ok := ctx.Next()
	if !ok {
		// falling off the end of a script behaves like an implicit RET.
		v.doReturn()
		return
	}
	ctx.ip++
	if err := v.AddGas(opcodePrice(opcode.Opcode(op))); err != nil {
		v.failWith(err)
		return
	}
	if err := v.execute(ctx, opcode.Opcode(op)); err != nil {
		v.failWith(err)
	}
}

func (v *VM) fault(r any) {
	if err, ok := r.(error); ok {
		v.failWith(err)
		return
	}
	v.failWith(newFault(v.curIP(), "", "%v", r))
}

func (v *VM) failWith(err error) {
	if v.tryHandleAsException(err) {
		return
	}
	v.state = vmstate.Fault
	v.uncaught = stackitem.NewByteArray([]byte(err.Error()))
}

// tryHandleAsException looks for an enclosing catch region in the current
// context's try stack; if found it jumps there instead of faulting the
// whole engine (spec.md §4.1 TRY/CATCH semantics).
func (v *VM) tryHandleAsException(err error) bool {
	ctx := v.Context()
	if ctx == nil || len(ctx.tryStack) == 0 {
		return false
	}
	top := &ctx.tryStack[len(ctx.tryStack)-1]
	if top.catchOffset < 0 {
		return false
	}
	msg := err.Error()
	_ = v.estack.Push(stackitem.NewByteArray([]byte(msg)))
	catch := top.catchOffset
	top.state = tryInCatch
	top.catchOffset = -1 // a region catches at most once
	_ = ctx.Jump(catch)
	return true
}

// opcodePrice returns the fixed gas price for an opcode (spec.md §4.1
// "every opcode has a fixed, hardfork-independent base price" — the VM
// charges these values as they are; no exec fee factor is applied).
func opcodePrice(op opcode.Opcode) int64 {
	switch {
	case op >= opcode.PUSHINT8 && op <= opcode.PUSH16:
		return 1
	case op == opcode.SYSCALL:
		return 0 // syscalls price themselves via the interop descriptor
	case op == opcode.NEWARRAY || op == opcode.NEWSTRUCT || op == opcode.NEWMAP ||
		op == opcode.PACK || op == opcode.PACKMAP || op == opcode.PACKSTRUCT:
		return 1 << 8
	case op == opcode.NEWBUFFER:
		return 1 << 8
	default:
		return 1 << 3
	}
}

func (v *VM) doReturn() {
	v.istack = v.istack[:len(v.istack)-1]
	if len(v.istack) == 0 {
		v.state = vmstate.Halt
	}
}

func (v *VM) pop() (stackitem.Item, error)    { return v.estack.Pop() }
func (v *VM) push(i stackitem.Item) error     { return v.estack.Push(i) }
func (v *VM) popInt() (*big.Int, error) {
	it, err := v.pop()
	if err != nil {
		return nil, err
	}
	return it.TryInteger()
}
func (v *VM) popBytes() ([]byte, error) {
	it, err := v.pop()
	if err != nil {
		return nil, err
	}
	return it.TryBytes()
}
func (v *VM) popBool() (bool, error) {
	it, err := v.pop()
	if err != nil {
		return false, err
	}
	return it.Boolean(), nil
}

// Uint160FromItem extracts a script hash from a ByteString/Buffer stack
// item, used by interop functions that take contract-hash arguments.
func Uint160FromItem(i stackitem.Item) (util.Uint160, error) {
	b, err := i.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesLE(b)
}
