// Package config defines the frozen protocol settings every component
// is constructed with (spec.md §6 "Configuration surface"): a single
// record built once at startup and passed by pointer, never mutated.
package config

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
)

// Hardfork names a protocol height at which semantics change. This
// core does not branch execution on hardfork (see DESIGN.md's Open
// Question decision); the table is still part of the configuration
// surface so the struct matches what a full node reads at startup, and
// so Validate can enforce the ordering invariant spec.md calls out.
type Hardfork string

// HFAspidochelone and HFEchidna bound the hardfork range spec.md
// mentions ("Aspidochelone through Echidna") without this core acting
// on any height in between.
const (
	HFAspidochelone Hardfork = "Aspidochelone"
	HFEchidna       Hardfork = "Echidna"
)

// ProtocolConfiguration is the frozen set of consensus-relevant knobs
// every node on a given network must agree on (spec.md §6). It is built
// once by New and never mutated afterward.
type ProtocolConfiguration struct {
	Magic                     uint32
	AddressVersion            byte
	MillisecondsPerBlock      uint32
	ValidatorsCount           int
	StandbyCommittee          keys.PublicKeys
	SeedList                  []string
	MemPoolSize               int
	MaxTransactionsPerBlock   int
	MaxBlockSize              uint32
	MaxBlockSystemFee         int64
	MaxTraceableBlocks        uint32
	MaxValidUntilBlockIncrement uint32
	InitialGASSupply          int64
	// HardforkHeights orders hardfork activation heights; later forks
	// must not activate earlier than earlier ones (checked by Validate).
	HardforkHeights map[Hardfork]uint32
	hardforkOrder   []Hardfork
}

// ErrInvalidConfiguration is returned by Validate; per spec.md §7
// "Fatal: ConfigurationInvalid", the caller must abort startup rather
// than continue with a partially-checked configuration.
var ErrInvalidConfiguration = errors.New("invalid protocol configuration")

// New builds a ProtocolConfiguration from its already-parsed fields.
// Parsing a configuration file is out of scope (spec.md §1 non-goals
// list "configuration file parsers" as an external collaborator's job);
// this constructor is the frozen record the rest of the node consumes.
func New(magic uint32, addressVersion byte, msPerBlock uint32, validatorsCount int, standby keys.PublicKeys) (*ProtocolConfiguration, error) {
	cfg := &ProtocolConfiguration{
		Magic:                   magic,
		AddressVersion:          addressVersion,
		MillisecondsPerBlock:    msPerBlock,
		ValidatorsCount:         validatorsCount,
		StandbyCommittee:        standby,
		MemPoolSize:             50000,
		MaxTransactionsPerBlock: 512,
		MaxBlockSize:            256 * 1024,
		MaxBlockSystemFee:       900000 * 100000000,
		MaxTraceableBlocks:      2102400,
		MaxValidUntilBlockIncrement: 5760,
		InitialGASSupply:        52_000_000 * 100000000,
		HardforkHeights:         map[Hardfork]uint32{},
		hardforkOrder:           []Hardfork{HFAspidochelone, HFEchidna},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CommitteeSize returns the number of committee seats, derived from the
// standby committee the way a running network's committee size is fixed
// at genesis.
func (c *ProtocolConfiguration) CommitteeSize() int {
	return len(c.StandbyCommittee)
}

// Validate enforces the invariants spec.md §6 requires of a
// configuration before it may be used to construct any component:
// a non-empty, duplicate-free standby committee no smaller than the
// validators count, and hardfork heights in non-decreasing activation
// order.
func (c *ProtocolConfiguration) Validate() error {
	if len(c.StandbyCommittee) == 0 {
		return fmt.Errorf("%w: empty standby committee", ErrInvalidConfiguration)
	}
	if c.ValidatorsCount <= 0 || c.ValidatorsCount > len(c.StandbyCommittee) {
		return fmt.Errorf("%w: validators count %d exceeds committee size %d", ErrInvalidConfiguration, c.ValidatorsCount, len(c.StandbyCommittee))
	}
	seen := make(map[string]bool, len(c.StandbyCommittee))
	for _, k := range c.StandbyCommittee {
		s := string(k.Bytes())
		if seen[s] {
			return fmt.Errorf("%w: duplicate standby committee key", ErrInvalidConfiguration)
		}
		seen[s] = true
	}
	var lastHeight uint32
	var sawAny bool
	for _, hf := range c.hardforkOrder {
		h, ok := c.HardforkHeights[hf]
		if !ok {
			continue
		}
		if sawAny && h < lastHeight {
			return fmt.Errorf("%w: hardfork %s activates before its predecessor", ErrInvalidConfiguration, hf)
		}
		lastHeight, sawAny = h, true
	}
	return nil
}
