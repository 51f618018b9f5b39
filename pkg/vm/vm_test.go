package vm_test

import (
	"testing"

	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/vm"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/opcode"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, script []byte) *vm.VM {
	t.Helper()
	v := vm.New()
	require.NoError(t, v.LoadScript(vm.NewScript(script), callflag.All))
	v.Run()
	return v
}

func TestArithmetic(t *testing.T) {
	script := []byte{
		byte(opcode.PUSH2),
		byte(opcode.PUSH3),
		byte(opcode.ADD),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.Halt, v.State())
	top, err := v.Estack().Peek(0)
	require.NoError(t, err)
	n, err := top.TryInteger()
	require.NoError(t, err)
	require.Equal(t, int64(5), n.Int64())
}

func TestDivisionByZeroFaults(t *testing.T) {
	script := []byte{
		byte(opcode.PUSH1),
		byte(opcode.PUSH0),
		byte(opcode.DIV),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.Fault, v.State())
	require.NotNil(t, v.FaultException())
}

func TestTryCatchRecoversFault(t *testing.T) {
	// TRY with catch offset +6 (skip THROW, land on the catch handler),
	// no finally; the catch handler pushes TRUE and returns.
	script := []byte{
		byte(opcode.TRY), 6, 0,
		byte(opcode.PUSHDATA1), 0, // empty message
		byte(opcode.THROW),
		byte(opcode.DROP), // catch handler: drop the message, push true
		byte(opcode.PUSHT),
		byte(opcode.ENDTRY), 2,
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.Halt, v.State())
	top, err := v.Estack().Peek(0)
	require.NoError(t, err)
	require.True(t, top.Boolean())
}

func TestArrayPackSize(t *testing.T) {
	script := []byte{
		byte(opcode.PUSH1),
		byte(opcode.PUSH2),
		byte(opcode.PUSH3),
		byte(opcode.PUSH3), // count
		byte(opcode.PACK),
		byte(opcode.DUP),
		byte(opcode.SIZE),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.Halt, v.State())
	top, err := v.Estack().Peek(0)
	require.NoError(t, err)
	n, err := top.TryInteger()
	require.NoError(t, err)
	require.Equal(t, int64(3), n.Int64())
}

func TestConvertAndIsType(t *testing.T) {
	script := []byte{
		byte(opcode.PUSH1),
		byte(opcode.CONVERT), byte(stackitem.ByteStringT),
		byte(opcode.ISTYPE), byte(stackitem.ByteStringT),
		byte(opcode.RET),
	}
	v := runScript(t, script)
	require.Equal(t, vmstate.Halt, v.State())
	top, err := v.Estack().Peek(0)
	require.NoError(t, err)
	require.True(t, top.Boolean())
}

func TestGasLimitFaults(t *testing.T) {
	v := vm.New()
	v.GasLimit = 1
	require.NoError(t, v.LoadScript(vm.NewScript([]byte{
		byte(opcode.PUSH1), byte(opcode.PUSH1), byte(opcode.ADD), byte(opcode.RET),
	}), callflag.All))
	v.Run()
	require.Equal(t, vmstate.Fault, v.State())
}
