// Package network implements the Neo N3 P2P gossip layer: message
// framing, the peer handshake, and the dispatcher that feeds accepted
// blocks and transactions into the ledger (spec.md §6 "External
// interfaces", §5 "Concurrency & resource model").
package network

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	neoio "github.com/nspcc-dev/neo-go-core/pkg/io"
)

// CommandType tags a message's payload kind, the single byte spec.md §6
// calls out in "length-prefixed, magic-tagged frames containing a
// command byte".
type CommandType byte

const (
	CmdVersion CommandType = iota
	CmdVerack
	CmdGetAddr
	CmdAddr
	CmdPing
	CmdPong
	CmdGetHeaders
	CmdHeaders
	CmdGetBlocks
	CmdGetBlockByIndex
	CmdInv
	CmdGetData
	CmdNotFound
	CmdBlock
	CmdTransaction
	CmdMempool
	CmdFilterLoad
	CmdFilterAdd
	CmdFilterClear
	CmdExtensible
)

func (c CommandType) String() string {
	switch c {
	case CmdVersion:
		return "version"
	case CmdVerack:
		return "verack"
	case CmdGetAddr:
		return "getaddr"
	case CmdAddr:
		return "addr"
	case CmdPing:
		return "ping"
	case CmdPong:
		return "pong"
	case CmdGetHeaders:
		return "getheaders"
	case CmdHeaders:
		return "headers"
	case CmdGetBlocks:
		return "getblocks"
	case CmdGetBlockByIndex:
		return "getblockbyindex"
	case CmdInv:
		return "inv"
	case CmdGetData:
		return "getdata"
	case CmdNotFound:
		return "notfound"
	case CmdBlock:
		return "block"
	case CmdTransaction:
		return "tx"
	case CmdMempool:
		return "mempool"
	case CmdFilterLoad:
		return "filterload"
	case CmdFilterAdd:
		return "filteradd"
	case CmdFilterClear:
		return "filterclear"
	case CmdExtensible:
		return "extensible"
	default:
		return fmt.Sprintf("cmd(%d)", byte(c))
	}
}

// compressFlag marks a payload as snappy-compressed on the wire. Real
// Neo N3 nodes reach for LZ4; no LZ4 package appears anywhere in this
// project's dependency pack, so snappy (already pulled in transitively
// via github.com/syndtr/goleveldb) stands in for it (see DESIGN.md).
const compressFlag byte = 0x01

// compressMinSize is the payload size above which WriteMessage bothers
// compressing; small payloads rarely shrink enough to be worth the
// decode cost on the receiving end.
const compressMinSize = 128

// MaxPayloadSize bounds a single message's uncompressed payload,
// guarding against a peer advertising an unbounded length prefix
// (spec.md §5 "failed peers are marked bad and rotated").
const MaxPayloadSize = 16 * 1024 * 1024

// ErrPayloadTooLarge is returned by ReadMessage when a compressed
// payload decompresses to more than MaxPayloadSize; an over-long length
// prefix fails earlier in the var-bytes read.
var ErrPayloadTooLarge = errors.New("network: payload exceeds maximum size")

// ErrMagicMismatch is returned by ReadMessage when a frame's magic
// does not match the local network's.
var ErrMagicMismatch = errors.New("network: magic mismatch")

// Message is one P2P frame: a network magic, a command, and its
// (already decompressed) payload.
type Message struct {
	Magic   uint32
	Command CommandType
	Payload []byte
}

// WriteMessage frames and writes one message to w, magic-tagging it and
// snappy-compressing the payload when it is large enough to be worth it
// (spec.md §6 "length-prefixed, magic-tagged frames ... an optionally
// compressed payload").
func WriteMessage(w io.Writer, magic uint32, cmd CommandType, payload []byte) error {
	bw := neoio.NewBufBinWriter()
	bw.WriteU32LE(magic)
	bw.WriteU8(byte(cmd))

	flags := byte(0)
	wire := payload
	if len(payload) >= compressMinSize {
		compressed := snappy.Encode(nil, payload)
		if len(compressed) < len(payload) {
			flags |= compressFlag
			wire = compressed
		}
	}
	bw.WriteU8(flags)
	bw.WriteVarBytes(wire)

	_, err := w.Write(bw.Bytes())
	return err
}

// ReadMessage reads and decodes exactly one message from r.
func ReadMessage(r io.Reader, expectedMagic uint32) (*Message, error) {
	br := neoio.NewBinReaderFromIO(r)
	magic := br.ReadU32LE()
	cmd := CommandType(br.ReadU8())
	flags := br.ReadU8()
	wire := br.ReadVarBytes(MaxPayloadSize)
	if br.Err != nil {
		return nil, br.Err
	}
	if magic != expectedMagic {
		return nil, ErrMagicMismatch
	}

	payload := wire
	if flags&compressFlag != 0 {
		decoded, err := snappy.Decode(nil, wire)
		if err != nil {
			return nil, fmt.Errorf("network: decompress payload: %w", err)
		}
		if len(decoded) > MaxPayloadSize {
			return nil, ErrPayloadTooLarge
		}
		payload = decoded
	}

	return &Message{Magic: magic, Command: cmd, Payload: payload}, nil
}
