package native

import (
	"encoding/json"
	"errors"
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/core/dao"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop/runtime"
	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// prefixContract stores every deployed (non-native) contract's state,
// keyed by its script hash (spec.md §4.3 "ContractManagement").
const prefixContract = 8

// defaultMinimumDeploymentFee is the GAS burned from the deployer on a
// successful Deploy call.
const defaultMinimumDeploymentFee = 10 * GASFactor

var (
	errContractNotFound   = errors.New("contract not found")
	errContractExists     = errors.New("contract already exists")
	errNoWitness          = errors.New("missing deployer witness")
	errEmptyManifestName  = errors.New("manifest name is empty")
)

// Management is the native contract that deploys, updates and destroys
// every other (non-native) contract (spec.md §4.3 "ContractManagement").
type Management struct {
	md     *interop.ContractMD
	Policy *PolicyContract
	GAS    *GasToken
}

// NewManagement builds the ContractManagement native with its fixed
// method table.
func NewManagement() *Management {
	m := &Management{md: interop.NewContractMD("ContractManagement", ManagementID, HashFromID(ManagementID))}
	m.md.AddMethod(interop.MethodAndPrice{Func: m.getContract, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getContract", Parameters: []manifest.Parameter{{Name: "hash", Type: "Hash160"}}, ReturnType: "Array", Safe: true}})
	m.md.AddMethod(interop.MethodAndPrice{Func: m.deploy, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "deploy", Parameters: []manifest.Parameter{
			{Name: "nefFile", Type: "ByteString"}, {Name: "manifest", Type: "ByteString"},
		}, ReturnType: "Array"}})
	m.md.AddMethod(interop.MethodAndPrice{Func: m.update, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "update", Parameters: []manifest.Parameter{
			{Name: "nefFile", Type: "ByteString"}, {Name: "manifest", Type: "ByteString"},
		}, ReturnType: "Void"}})
	m.md.AddMethod(interop.MethodAndPrice{Func: m.destroy, RequiredFlags: callflag.States | callflag.AllowNotify,
		MD: manifest.Method{Name: "destroy", ReturnType: "Void"}})
	m.md.AddMethod(interop.MethodAndPrice{Func: m.getMinimumDeploymentFee, RequiredFlags: callflag.ReadStates,
		MD: manifest.Method{Name: "getMinimumDeploymentFee", ReturnType: "Integer", Safe: true}})
	m.md.AddEvent(interop.Event{MD: manifest.Event{Name: "Deploy", Parameters: []manifest.Parameter{{Name: "hash", Type: "Hash160"}}}})
	m.md.AddEvent(interop.Event{MD: manifest.Event{Name: "Update", Parameters: []manifest.Parameter{{Name: "hash", Type: "Hash160"}}}})
	m.md.AddEvent(interop.Event{MD: manifest.Event{Name: "Destroy", Parameters: []manifest.Parameter{{Name: "hash", Type: "Hash160"}}}})
	return m
}

func (m *Management) Metadata() *interop.ContractMD { return m.md }

func (m *Management) Initialize(ic *interop.Context) error { return nil }
func (m *Management) OnPersist(ic *interop.Context) error  { return nil }
func (m *Management) PostPersist(ic *interop.Context) error { return nil }

func contractKey(hash util.Uint160) []byte {
	return state.StorageKey{ID: ManagementID, Key: append([]byte{prefixContract}, hash[:]...)}.Bytes()
}

// GetContract resolves a deployed (non-native) contract by hash.
func (m *Management) GetContract(ic *interop.Context, hash util.Uint160) (*state.Contract, error) {
	return m.GetContractByDAO(ic.DAO, hash)
}

// GetContractByDAO is GetContract against a bare DAO snapshot, used by
// Blockchain.GetContract (the interop.Ledger side of lookups), which has
// no application engine context to work through.
func (m *Management) GetContractByDAO(d *dao.Simple, hash util.Uint160) (*state.Contract, error) {
	v, err := d.Get(contractKey(hash))
	if err != nil {
		return nil, errContractNotFound
	}
	var cs contractRecord
	if err := json.Unmarshal(v, &cs); err != nil {
		return nil, err
	}
	return cs.toState(), nil
}

func (m *Management) putContract(ic *interop.Context, cs *state.Contract) error {
	rec := contractRecordFrom(cs)
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ic.DAO.Put(contractKey(cs.Hash), b)
	return nil
}

// contractRecord is the JSON-friendly wire form of state.Contract (NEF
// keeps its script as raw bytes rather than nef.File's in-memory shape).
type contractRecord struct {
	ID            int32
	UpdateCounter uint16
	Hash          util.Uint160
	NEFScript     []byte
	NEFCompiler   string
	NEFChecksum   uint32
	Manifest      manifest.Manifest
}

func contractRecordFrom(cs *state.Contract) contractRecord {
	return contractRecord{
		ID: cs.ID, UpdateCounter: cs.UpdateCounter, Hash: cs.Hash,
		NEFScript: cs.NEF.Script, NEFCompiler: cs.NEF.Compiler, NEFChecksum: cs.NEF.Checksum,
		Manifest: cs.Manifest,
	}
}

func (r *contractRecord) toState() *state.Contract {
	return &state.Contract{
		ID: r.ID, UpdateCounter: r.UpdateCounter, Hash: r.Hash,
		NEF:      nef.File{Magic: nef.Magic, Script: r.NEFScript, Compiler: r.NEFCompiler, Checksum: r.NEFChecksum},
		Manifest: r.Manifest,
	}
}

func contractToArray(cs *state.Contract) stackitem.Item {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewBigIntegerFromInt64(int64(cs.ID)),
		stackitem.NewByteArray(cs.NEF.Script),
		stackitem.NewByteArray(cs.Hash[:]),
	})
}

func (m *Management) getContract(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	b, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return nil, err
	}
	cs, err := m.GetContract(ic, h)
	if err != nil {
		return stackitem.Null{}, nil
	}
	return contractToArray(cs), nil
}

func (m *Management) getMinimumDeploymentFee(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	return stackitem.NewBigIntegerFromInt64(defaultMinimumDeploymentFee), nil
}

func callingScriptHash(ic *interop.Context) util.Uint160 {
	return ic.VM.Context().ScriptHash()
}

func (m *Management) deploy(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	nefBytes, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	mfBytes, err := args[1].TryBytes()
	if err != nil {
		return nil, err
	}
	nefFile, err := nef.FileFromBytes(nefBytes)
	if err != nil {
		return nil, err
	}
	var mf manifest.Manifest
	if err := json.Unmarshal(mfBytes, &mf); err != nil {
		return nil, err
	}
	if mf.Name == "" {
		return nil, errEmptyManifestName
	}
	sender := callingScriptHash(ic)
	ok, err := runtime.CheckWitness(ic, sender[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoWitness
	}
	hash := state.CreateContractHash(sender, nefFile.Checksum, mf.Name)
	if _, err := m.GetContract(ic, hash); err == nil {
		return nil, errContractExists
	}
	if m.GAS != nil {
		if err := m.GAS.Burn(ic, sender, big.NewInt(defaultMinimumDeploymentFee)); err != nil {
			return nil, err
		}
	}
	id := m.nextAvailableID(ic)
	cs := &state.Contract{ID: id, Hash: hash, NEF: *nefFile, Manifest: mf}
	if err := m.putContract(ic, cs); err != nil {
		return nil, err
	}
	ic.AddNotification(m.md.Hash, "Deploy", stackitem.NewArray([]stackitem.Item{stackitem.NewByteArray(hash[:])}))
	return contractToArray(cs), nil
}

func (m *Management) update(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	nefBytes, err := args[0].TryBytes()
	if err != nil {
		return nil, err
	}
	mfBytes, err := args[1].TryBytes()
	if err != nil {
		return nil, err
	}
	self := callingScriptHash(ic)
	cs, err := m.GetContract(ic, self)
	if err != nil {
		return nil, err
	}
	if len(nefBytes) > 0 {
		nefFile, err := nef.FileFromBytes(nefBytes)
		if err != nil {
			return nil, err
		}
		cs.NEF = *nefFile
	}
	if len(mfBytes) > 0 {
		var mf manifest.Manifest
		if err := json.Unmarshal(mfBytes, &mf); err != nil {
			return nil, err
		}
		cs.Manifest = mf
	}
	cs.UpdateCounter++
	if err := m.putContract(ic, cs); err != nil {
		return nil, err
	}
	ic.AddNotification(m.md.Hash, "Update", stackitem.NewArray([]stackitem.Item{stackitem.NewByteArray(self[:])}))
	return stackitem.Null{}, nil
}

func (m *Management) destroy(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	self := callingScriptHash(ic)
	if _, err := m.GetContract(ic, self); err != nil {
		return nil, err
	}
	ic.DAO.Delete(contractKey(self))
	ic.AddNotification(m.md.Hash, "Destroy", stackitem.NewArray([]stackitem.Item{stackitem.NewByteArray(self[:])}))
	return stackitem.Null{}, nil
}

var keyNextAvailableID = []byte{15}

func (m *Management) nextAvailableID(ic *interop.Context) int32 {
	key := state.StorageKey{ID: ManagementID, Key: keyNextAvailableID}.Bytes()
	v, err := ic.DAO.Get(key)
	var id int32 = 1
	if err == nil && len(v) >= 4 {
		id = int32(v[0]) | int32(v[1])<<8 | int32(v[2])<<16 | int32(v[3])<<24
	}
	next := id + 1
	ic.DAO.Put(key, []byte{byte(next), byte(next >> 8), byte(next >> 16), byte(next >> 24)})
	return id
}
