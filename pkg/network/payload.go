package network

import (
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// MaxUserAgentLen bounds VersionPayload.UserAgent (spec.md §6 "peers
// exchange a version handshake before any other traffic is accepted").
const MaxUserAgentLen = 1024

// VersionPayload is the first message a peer sends after connecting,
// identifying its network, protocol capabilities, and chain height.
type VersionPayload struct {
	Network   uint32
	Version   uint32
	Timestamp uint32
	Nonce     uint32
	UserAgent string
	Height    uint32
	Relay     bool
}

func (p *VersionPayload) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.Network)
	w.WriteU32LE(p.Version)
	w.WriteU32LE(p.Timestamp)
	w.WriteU32LE(p.Nonce)
	w.WriteVarBytes([]byte(p.UserAgent))
	w.WriteU32LE(p.Height)
	w.WriteB(p.Relay)
}

func (p *VersionPayload) DecodeBinary(r *io.BinReader) error {
	p.Network = r.ReadU32LE()
	p.Version = r.ReadU32LE()
	p.Timestamp = r.ReadU32LE()
	p.Nonce = r.ReadU32LE()
	p.UserAgent = string(r.ReadVarBytes(MaxUserAgentLen))
	p.Height = r.ReadU32LE()
	p.Relay = r.ReadB()
	return r.Err
}

// InvType tags what an inventory vector identifies.
type InvType byte

const (
	InvTypeTx         InvType = 0x2b
	InvTypeBlock      InvType = 0x2c
	InvTypeExtensible InvType = 0x2e
)

// MaxInvEntries bounds a single Inv/GetData/NotFound payload (spec.md §6
// "mempool and block relay use bounded inventory announcements").
const MaxInvEntries = 500

var ErrTooManyInvEntries = errors.New("network: too many inventory entries")

// InvPayload announces or requests a set of same-typed objects by hash,
// the unit Inv, GetData, and NotFound messages all share.
type InvPayload struct {
	Type   InvType
	Hashes []util.Uint256
}

func (p *InvPayload) EncodeBinary(w *io.BinWriter) {
	w.WriteU8(byte(p.Type))
	w.WriteVarUint(uint64(len(p.Hashes)))
	for _, h := range p.Hashes {
		w.WriteBytes(h.BytesLE())
	}
}

func (p *InvPayload) DecodeBinary(r *io.BinReader) error {
	p.Type = InvType(r.ReadU8())
	n := r.ReadVarUint()
	if n > MaxInvEntries {
		return ErrTooManyInvEntries
	}
	p.Hashes = make([]util.Uint256, n)
	for i := range p.Hashes {
		buf := make([]byte, util.Uint256Size)
		r.ReadBytes(buf)
		h, err := util.Uint256DecodeBytesLE(buf)
		if err != nil {
			return err
		}
		p.Hashes[i] = h
	}
	return r.Err
}

// GetBlockByIndexPayload requests a run of blocks starting at IndexStart.
type GetBlockByIndexPayload struct {
	IndexStart uint32
	Count      int16
}

func (p *GetBlockByIndexPayload) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.IndexStart)
	w.WriteU16LE(uint16(p.Count))
}

func (p *GetBlockByIndexPayload) DecodeBinary(r *io.BinReader) error {
	p.IndexStart = r.ReadU32LE()
	p.Count = int16(r.ReadU16LE())
	return r.Err
}

// PingPayload carries the sender's chain height and a nonce, used both
// for liveness checks and light height gossip.
type PingPayload struct {
	LastBlockIndex uint32
	Timestamp      uint32
	Nonce          uint32
}

func (p *PingPayload) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(p.LastBlockIndex)
	w.WriteU32LE(p.Timestamp)
	w.WriteU32LE(p.Nonce)
}

func (p *PingPayload) DecodeBinary(r *io.BinReader) error {
	p.LastBlockIndex = r.ReadU32LE()
	p.Timestamp = r.ReadU32LE()
	p.Nonce = r.ReadU32LE()
	return r.Err
}
