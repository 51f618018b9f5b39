package native

import (
	"github.com/nspcc-dev/neo-go-core/pkg/config"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Suite is every native contract instance a Blockchain wires into an
// application engine's Context.Natives (spec.md §4.3). The fields exist
// individually, not just as the Contracts slice, so callers needing a
// concrete native (e.g. a block assembler reading NeoToken.PrimaryAccount)
// don't have to type-switch the slice.
type Suite struct {
	Management *Management
	StdLib     *StdLib
	CryptoLib  *CryptoLib
	Ledger     *LedgerContract
	Neo        *NeoToken
	Gas        *GasToken
	Policy     *PolicyContract
	Role       *RoleManagement
	Oracle     *OracleContract

	Contracts []interop.Contract
}

// NewSuite builds all nine native contracts and cross-wires the pointer
// fields they use to call each other directly (NeoToken minting GAS
// voter rewards through GasToken, Management burning GAS on deploy, and so on) rather than
// going through a System.Contract.Call indirection for inter-native
// calls, the same shortcut the real node takes for its own natives.
func NewSuite(cfg *config.ProtocolConfiguration, genesisAccount util.Uint160) *Suite {
	s := &Suite{
		Management: NewManagement(),
		StdLib:     NewStdLib(),
		CryptoLib:  NewCryptoLib(),
		Ledger:     NewLedgerContract(),
		Neo:        NewNeoToken(cfg, genesisAccount),
		Gas:        NewGasToken(),
		Policy:     NewPolicyContract(),
		Role:       NewRoleManagement(),
		Oracle:     NewOracleContract(),
	}

	s.Neo.GAS = s.Gas
	s.Neo.Policy = s.Policy
	s.Gas.Neo = s.Neo
	s.Gas.Policy = s.Policy
	s.Management.GAS = s.Gas
	s.Management.Policy = s.Policy
	s.Oracle.GAS = s.Gas
	s.Oracle.Policy = s.Policy

	s.Contracts = []interop.Contract{
		s.Management, s.StdLib, s.CryptoLib, s.Ledger,
		s.Neo, s.Gas, s.Policy, s.Role, s.Oracle,
	}
	return s
}

// InitializeAll runs every native's Initialize hook, in Contracts order,
// against the genesis context. NeoToken must activate before GasToken's
// first OnPersist call can look up a primary account to mint to, which
// the fixed Contracts order above already guarantees.
func (s *Suite) InitializeAll(ic *interop.Context) error {
	for _, c := range s.Contracts {
		if err := c.Initialize(ic); err != nil {
			return err
		}
	}
	return nil
}

// OnPersistAll runs every native's OnPersist hook for the block ic
// carries, in Contracts order (spec.md §4.4 "OnPersist").
func (s *Suite) OnPersistAll(ic *interop.Context) error {
	for _, c := range s.Contracts {
		if err := c.OnPersist(ic); err != nil {
			return err
		}
	}
	return nil
}

// PostPersistAll runs every native's PostPersist hook for the block ic
// carries, in Contracts order (spec.md §4.4 "PostPersist").
func (s *Suite) PostPersistAll(ic *interop.Context) error {
	for _, c := range s.Contracts {
		if err := c.PostPersist(ic); err != nil {
			return err
		}
	}
	return nil
}
