package interop

import (
	"errors"
	"sort"

	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// Method is a native contract's handler for one ABI method: it reads its
// arguments already popped off the stack and returns the single result
// item Run pushes back (spec.md §4.3 "Native contracts").
type Method func(ic *Context, args []stackitem.Item) (stackitem.Item, error)

// MethodAndPrice pairs one native method with its ABI descriptor and the
// CPU/storage cost of calling it, mirroring how the application engine
// prices a native call the same way it prices a syscall (spec.md §4.3).
type MethodAndPrice struct {
	Func          Method
	MD            manifest.Method
	CPUFee        int64
	StorageFee    int64
	RequiredFlags callflag.CallFlag
}

// Event is a native contract's declared notification shape.
type Event struct {
	MD manifest.Event
}

// Contract is implemented by every native contract: ContractManagement,
// NeoToken, GasToken, LedgerContract, PolicyContract, RoleManagement,
// StdLib, CryptoLib, OracleContract (spec.md §4.3).
type Contract interface {
	// Initialize runs once, the first time the contract activates
	// (typically genesis), seeding its initial storage state.
	Initialize(ic *Context) error
	// Metadata returns the contract's fixed id/hash/manifest/method
	// table.
	Metadata() *ContractMD
	// OnPersist runs once per block before any transaction is applied.
	OnPersist(ic *Context) error
	// PostPersist runs once per block after every transaction has been
	// applied.
	PostPersist(ic *Context) error
}

// ErrNativeMethodNotFound is returned when System.Contract.Call targets a
// native contract method absent from the contract's table.
var ErrNativeMethodNotFound = errors.New("native method not found")

// ContractMD is a native contract's fixed identity: its fixed id, the
// script hash derived from that id, its method/event tables, and the
// lazily-built NEF/Manifest pair describing it to callers the same way a
// deployed user contract is described (spec.md §4.3 "native contracts
// share the calling convention of deployed contracts").
type ContractMD struct {
	ID      int32
	Hash    util.Uint160
	Name    string
	Methods []MethodAndPrice
	Events  []Event

	nef      *nef.File
	mf       *manifest.Manifest
	contract *state.Contract
}

// NewContractMD creates a ContractMD with the given id and script hash;
// it records hash as given and does not derive it (the natives pass
// HashFromID(id)).
func NewContractMD(name string, id int32, hash util.Uint160) *ContractMD {
	return &ContractMD{ID: id, Name: name, Hash: hash}
}

// AddMethod registers a method, keeping Methods sorted by
// (Name, ParamCount), the order the manifest ABI is built in.
func (c *ContractMD) AddMethod(m MethodAndPrice) {
	i := sort.Search(len(c.Methods), func(i int) bool {
		if c.Methods[i].MD.Name != m.MD.Name {
			return c.Methods[i].MD.Name >= m.MD.Name
		}
		return len(c.Methods[i].MD.Parameters) >= len(m.MD.Parameters)
	})
	c.Methods = append(c.Methods, MethodAndPrice{})
	copy(c.Methods[i+1:], c.Methods[i:])
	c.Methods[i] = m
	c.nef, c.mf, c.contract = nil, nil, nil
}

// AddEvent registers a notification shape in the contract's manifest.
func (c *ContractMD) AddEvent(e Event) {
	c.Events = append(c.Events, e)
	c.nef, c.mf, c.contract = nil, nil, nil
}

// GetMethod finds a registered method by name and arity.
func (c *ContractMD) GetMethod(name string, paramCount int) (*MethodAndPrice, bool) {
	for i := range c.Methods {
		if c.Methods[i].MD.Name == name && (paramCount < 0 || len(c.Methods[i].MD.Parameters) == paramCount) {
			return &c.Methods[i], true
		}
	}
	return nil, false
}

// Manifest lazily builds and caches the ABI manifest for this contract.
func (c *ContractMD) Manifest() *manifest.Manifest {
	c.build()
	return c.mf
}

// NEF lazily builds and caches the (synthetic) NEF for this contract.
func (c *ContractMD) NEF() *nef.File {
	c.build()
	return c.nef
}

// AsContractState renders this native as the same state.Contract shape
// GetContract returns for deployed user contracts.
func (c *ContractMD) AsContractState() *state.Contract {
	c.build()
	return c.contract
}

func (c *ContractMD) build() {
	if c.mf != nil {
		return
	}
	abiMethods := make([]manifest.Method, len(c.Methods))
	for i, m := range c.Methods {
		abiMethods[i] = m.MD
		abiMethods[i].Offset = i
	}
	abiEvents := make([]manifest.Event, len(c.Events))
	for i, e := range c.Events {
		abiEvents[i] = e.MD
	}
	c.mf = &manifest.Manifest{
		Name: c.Name,
		ABI:  manifest.ABI{Methods: abiMethods, Events: abiEvents},
		Permissions: []manifest.Permission{
			{Contract: manifest.PermissionWildcard, Methods: []string{manifest.PermissionWildcard}},
		},
	}
	// Natives have no real bytecode: System.Contract.Call recognizes a
	// native by its hash and runs the Go method directly, never stepping
	// the VM over a script.
	c.nef = &nef.File{Magic: nef.Magic, Script: []byte{}}
	c.nef.Checksum = nef.CalcChecksum(c.nef)
	c.contract = &state.Contract{
		ID:       c.ID,
		Hash:     c.Hash,
		NEF:      *c.nef,
		Manifest: *c.mf,
	}
}
