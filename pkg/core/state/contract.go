package state

import (
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Contract is a deployed contract's persisted record: id, NEF, and
// manifest (spec.md §3 "ContractState").
type Contract struct {
	ID             int32
	UpdateCounter  uint16
	Hash           util.Uint160
	NEF            nef.File
	Manifest       manifest.Manifest
}

// IsNative reports whether this record describes a native contract:
// NeoToken and GasToken keep ids 1 and 2, every other native has a
// negative id.
func (c *Contract) IsNative() bool { return c.ID < 0 || c.ID == 1 || c.ID == 2 }

// CreateContractHash derives a deployed contract's script hash from its
// deployer, its NEF checksum, and its declared name, so redeploying
// identical bytecode under a different name or sender yields a
// different address. The real node hashes a tiny synthetic invocation
// script built from these three fields; this core hashes their
// concatenation directly, since nothing else needs the intermediate
// script bytes.
func CreateContractHash(sender util.Uint160, checksum uint32, name string) util.Uint160 {
	w := io.NewBufBinWriter()
	w.BinWriter.WriteBytes(sender.BytesBE())
	w.BinWriter.WriteU32LE(checksum)
	w.BinWriter.WriteVarBytes([]byte(name))
	return hash.Hash160(w.Bytes())
}
