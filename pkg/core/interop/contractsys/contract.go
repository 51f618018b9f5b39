// Package contractsys implements the System.Contract.* syscall family:
// cross-contract invocation, call-flag introspection, and standard
// account script synthesis (spec.md §4.2 "cross-contract call goes
// through the Contract.Call syscall").
package contractsys

import (
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// ErrDeniedByPermission is returned when the callee's manifest doesn't
// grant the caller permission to invoke the requested method.
var ErrDeniedByPermission = errors.New("call denied by contract permissions")

// Call implements System.Contract.Call: looks up the target contract,
// checks the target manifest's permissions for the method when the
// caller is itself a known contract, intersects call flags, and
// either dispatches straight to a native method or loads the callee's
// NEF script as a new invocation frame sharing the same VM (spec.md
// §4.2; see DESIGN.md for the CALL-vs-cross-contract-call split).
func Call(ic *interop.Context, target util.Uint160, method string, flags callflag.CallFlag, args []stackitem.Item) error {
	cs, err := ic.GetContract(target)
	if err != nil {
		return fmt.Errorf("target contract not found: %w", err)
	}
	if method == "" || method[0] == '_' {
		return errors.New("method name starts with underscore or is empty")
	}
	md, ok := cs.Manifest.ABI.GetMethod(method, len(args))
	if !ok {
		return fmt.Errorf("method %s/%d not found on target contract", method, len(args))
	}

	caller := ic.VM.Context().ScriptHash()
	if _, err := ic.GetContract(caller); err == nil && !cs.Manifest.CanCall(target, method) {
		return ErrDeniedByPermission
	}

	actualFlags := ic.VM.CallFlags().Intersect(flags)

	for n := range ic.Natives {
		nmd := ic.Natives[n].Metadata()
		if nmd.Hash != target {
			continue
		}
		nm, ok := nmd.GetMethod(method, len(args))
		if !ok {
			return fmt.Errorf("%w: %s/%d", interop.ErrNativeMethodNotFound, method, len(args))
		}
		if !actualFlags.Has(nm.RequiredFlags) {
			return fmt.Errorf("%w: native method %s needs %s", interop.ErrMissingCallFlag, method, nm.RequiredFlags)
		}
		result, err := nm.Func(ic, args)
		if err != nil {
			return err
		}
		return ic.VM.Estack().Push(result)
	}

	script := vm.NewScript(cs.NEF.Script)
	if err := ic.VM.LoadScript(script, actualFlags); err != nil {
		return err
	}
	for i := len(args) - 1; i >= 0; i-- {
		if err := ic.VM.Estack().Push(args[i]); err != nil {
			return err
		}
	}
	return ic.VM.Context().Jump(md.Offset)
}

// CallNative implements System.Contract.CallNative: it returns an error
// unless a native with the given id is registered, and does not invoke
// any method.
func CallNative(ic *interop.Context, id int32) error {
	for n := range ic.Natives {
		if ic.Natives[n].Metadata().ID == id {
			return nil
		}
	}
	return fmt.Errorf("native contract id %d not found", id)
}

// GetCallFlags implements System.Contract.GetCallFlags.
func GetCallFlags(ic *interop.Context) callflag.CallFlag {
	return ic.VM.CallFlags()
}

// CreateStandardAccount implements System.Contract.CreateStandardAccount:
// the script hash of the single-signature verification script for a
// public key, without constructing the script itself on the stack.
func CreateStandardAccount(pub []byte) (util.Uint160, error) {
	p, err := keys.NewPublicKeyFromBytes(pub, elliptic.P256())
	if err != nil {
		return util.Uint160{}, err
	}
	return p.GetScriptHash(), nil
}
