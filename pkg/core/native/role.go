package native

import (
	"crypto/elliptic"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/storage"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

var errInvalidRoleArgument = errors.New("designateAsRole: pubkeys must be an array")

// Role names a designated duty a set of public keys may be assigned to
// (spec.md §4.3 "RoleManagement").
type Role byte

const (
	RoleStateValidator Role = 4
	RoleOracle         Role = 8
	RoleNeoFSAlphabet  Role = 16
	RoleP2PNotary      Role = 32
)

const prefixRoleDesignation = 33

// RoleManagement is the native contract tracking which public keys are
// currently designated for oracle/state-validator/notary duty.
type RoleManagement struct {
	md *interop.ContractMD
}

// NewRoleManagement builds the RoleManagement native.
func NewRoleManagement() *RoleManagement {
	r := &RoleManagement{md: interop.NewContractMD("RoleManagement", RoleMgmtID, HashFromID(RoleMgmtID))}
	r.md.AddMethod(interop.MethodAndPrice{Func: r.getDesignatedByRole, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getDesignatedByRole", Parameters: []manifest.Parameter{
			{Name: "role", Type: "Integer"}, {Name: "index", Type: "Integer"},
		}, ReturnType: "Array", Safe: true}})
	r.md.AddMethod(interop.MethodAndPrice{Func: r.designateAsRole, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "designateAsRole", Parameters: []manifest.Parameter{
			{Name: "role", Type: "Integer"}, {Name: "pubkeys", Type: "Array"},
		}, ReturnType: "Void"}})
	r.md.AddEvent(interop.Event{MD: manifest.Event{Name: "Designation", Parameters: []manifest.Parameter{
		{Name: "role", Type: "Integer"}, {Name: "blockIndex", Type: "Integer"},
	}}})
	return r
}

func (r *RoleManagement) Metadata() *interop.ContractMD   { return r.md }
func (r *RoleManagement) Initialize(ic *interop.Context) error { return nil }
func (r *RoleManagement) OnPersist(ic *interop.Context) error   { return nil }
func (r *RoleManagement) PostPersist(ic *interop.Context) error { return nil }

func (r *RoleManagement) roleKey(role Role, index uint32) []byte {
	suffix := []byte{byte(role), byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index)}
	return nep17Key(r.md.ID, prefixRoleDesignation, suffix)
}

// DesignatedByRole returns the public keys designated for role as of
// the most recent designation at or before index.
func (r *RoleManagement) DesignatedByRole(ic *interop.Context, role Role, index uint32) keys.PublicKeys {
	prefix := nep17Key(r.md.ID, prefixRoleDesignation, []byte{byte(role)})
	var v []byte
	ic.DAO.Seek(prefix, storage.SeekDesc, func(k, val []byte) bool {
		if len(k) == len(prefix)+4 && binary.BigEndian.Uint32(k[len(prefix):]) <= index {
			v = append([]byte(nil), val...)
			return false
		}
		return true
	})
	if v == nil {
		return nil
	}
	rd := io.NewBinReaderFromBuf(v)
	n := rd.ReadVarUint()
	out := make(keys.PublicKeys, 0, n)
	for i := uint64(0); i < n; i++ {
		b := rd.ReadVarBytes(33)
		k, err := keys.NewPublicKeyFromBytes(b, elliptic.P256())
		if err != nil {
			continue
		}
		out = append(out, k)
	}
	return out
}

func (r *RoleManagement) getDesignatedByRole(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	roleInt, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	idx, err := bigIntArg(args, 1)
	if err != nil {
		return nil, err
	}
	pubs := r.DesignatedByRole(ic, Role(roleInt.Int64()), uint32(idx.Int64()))
	items := make([]stackitem.Item, len(pubs))
	for i, k := range pubs {
		items[i] = stackitem.NewByteArray(k.Bytes())
	}
	return stackitem.NewArray(items), nil
}

func (r *RoleManagement) designateAsRole(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	roleInt, err := bigIntArg(args, 0)
	if err != nil {
		return nil, err
	}
	arr, ok := args[1].(*stackitem.Array)
	if !ok {
		return nil, errInvalidRoleArgument
	}
	pubs := make(keys.PublicKeys, 0, arr.Len())
	for _, it := range arr.Value().([]stackitem.Item) {
		b, err := it.TryBytes()
		if err != nil {
			return nil, err
		}
		k, err := keys.NewPublicKeyFromBytes(b, elliptic.P256())
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, k)
	}
	sort.Sort(pubs)
	w := io.NewBufBinWriter()
	w.BinWriter.WriteVarUint(uint64(len(pubs)))
	for _, k := range pubs {
		w.BinWriter.WriteVarBytes(k.Bytes())
	}
	index := ic.BlockHeight() + 1
	ic.DAO.Put(r.roleKey(Role(roleInt.Int64()), index), w.Bytes())
	ic.AddNotification(r.md.Hash, "Designation", stackitem.NewArray([]stackitem.Item{
		stackitem.NewBigInteger(roleInt), stackitem.NewBigIntegerFromInt64(int64(ic.BlockHeight())),
	}))
	return stackitem.Null{}, nil
}
