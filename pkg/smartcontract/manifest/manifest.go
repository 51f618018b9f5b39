// Package manifest implements the per-contract metadata document
// describing its ABI, permissions, and trusts (spec.md §3 "manifest",
// GLOSSARY "Manifest").
package manifest

import (
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// MaxManifestSize bounds the serialized manifest document.
const MaxManifestSize = 64 * 1024

// Parameter describes one method argument or return value's declared
// stack-item type.
type Parameter struct {
	Name string
	Type string // mirrors stackitem.Type.String(), kept as a plain string for ABI JSON fidelity
}

// Method is one ABI entry: an exposed method name, its entry offset
// into the NEF script, parameters, return type, and safety flag.
type Method struct {
	Name       string
	Offset     int
	Parameters []Parameter
	ReturnType string
	Safe       bool
}

// Event is one ABI-declared notification shape a contract may emit.
type Event struct {
	Name       string
	Parameters []Parameter
}

// ABI groups a contract's callable surface.
type ABI struct {
	Methods []Method
	Events  []Event
}

// Group is a (public key, signature-over-contract-hash) pair asserting
// the contract belongs to a related set (e.g. same publisher).
type Group struct {
	PublicKey *keys.PublicKey
	Signature []byte
}

// PermissionWildcard matches any contract hash/group or any method.
const PermissionWildcard = "*"

// Permission declares which contracts/methods this contract may call.
type Permission struct {
	Contract string // hash (hex) or PermissionWildcard
	Methods  []string
}

// Manifest is a deployed contract's full metadata document.
type Manifest struct {
	Name               string
	Groups             []Group
	SupportedStandards []string
	ABI                ABI
	Permissions        []Permission
	Trusts             []util.Uint160 // empty means "trust no one"; nil+wildcard handled by TrustsAll
	TrustsAll          bool
	Extra              map[string]any
}

// CanCall reports whether this manifest's permissions allow a call to
// targetHash/targetMethod (spec.md §4.2 CallContract precondition).
func (m *Manifest) CanCall(targetHash util.Uint160, targetMethod string) bool {
	for _, p := range m.Permissions {
		if p.Contract != PermissionWildcard && p.Contract != targetHash.StringLE() {
			continue
		}
		for _, meth := range p.Methods {
			if meth == PermissionWildcard || meth == targetMethod {
				return true
			}
		}
	}
	return false
}

// GetMethod finds a method by name and parameter count (Neo allows
// overloads distinguished only by arity).
func (a *ABI) GetMethod(name string, paramCount int) (*Method, bool) {
	for i := range a.Methods {
		if a.Methods[i].Name == name && (paramCount < 0 || len(a.Methods[i].Parameters) == paramCount) {
			return &a.Methods[i], true
		}
	}
	return nil, false
}

// IsTrusted reports whether callee is allowed to read this contract's
// call result/notifications per the Trusts list.
func (m *Manifest) IsTrusted(callee util.Uint160) bool {
	if m.TrustsAll {
		return true
	}
	for _, h := range m.Trusts {
		if h == callee {
			return true
		}
	}
	return false
}
