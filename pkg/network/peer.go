package network

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nspcc-dev/neo-go-core/pkg/io"
)

// HandshakeTimeout bounds how long a new connection has to complete its
// version/verack exchange before it is dropped (spec.md §6).
const HandshakeTimeout = 10 * time.Second

var (
	ErrHandshakeTimeout = errors.New("network: handshake timed out")
	ErrNetworkMismatch  = errors.New("network: peer magic mismatch")
	ErrUnexpectedCmd    = errors.New("network: unexpected command during handshake")
)

// PeerConfig carries the local node's identity, handed to every Peer so
// the handshake can advertise it.
type PeerConfig struct {
	Network   uint32
	Version   uint32
	UserAgent string
	Nonce     uint32
}

// Handler receives decoded, handshake-complete traffic from a Peer's Run
// loop. Implementations return an error (and an optional ban delta via
// Reject) to have the misbehavior scored (spec.md §7).
type Handler interface {
	OnVersion(p *Peer, v *VersionPayload) error
	OnInv(p *Peer, inv *InvPayload) error
	OnGetData(p *Peer, inv *InvPayload) error
	OnNotFound(p *Peer, inv *InvPayload) error
	OnGetBlockByIndex(p *Peer, g *GetBlockByIndexPayload) error
	OnBlock(p *Peer, raw []byte) error
	OnTx(p *Peer, raw []byte) error
	OnPing(p *Peer, ping *PingPayload) error
	OnPong(p *Peer, pong *PingPayload) error
}

// Reject, when returned by a Handler method wrapped in this type, carries
// an explicit ban-score delta instead of the dispatcher's command-level
// default (spec.md §7 reject-kind table).
type Reject struct {
	Err   error
	Delta int
}

func (r *Reject) Error() string { return r.Err.Error() }
func (r *Reject) Unwrap() error { return r.Err }

// Peer wraps one inbound or outbound connection: its wire codec, remote
// identity once known, and ban-score accounting.
type Peer struct {
	Conn    net.Conn
	Cfg     PeerConfig
	Remote  *VersionPayload
	Ban     *BanScore
	Inbound bool
}

// NewPeer wraps conn, ready to Handshake and then Run.
func NewPeer(conn net.Conn, cfg PeerConfig, inbound bool) *Peer {
	return &Peer{
		Conn:    conn,
		Cfg:     cfg,
		Ban:     NewBanScore(time.Now()),
		Inbound: inbound,
	}
}

// Send frames and writes one message to the peer.
func (p *Peer) Send(cmd CommandType, payload []byte) error {
	return WriteMessage(p.Conn, p.Cfg.Network, cmd, payload)
}

// binEncodable is anything with a canonical binary encoding; narrower
// than io.Serializable since several payload types here return an error
// from DecodeBinary (malformed wire data, not just r.Err) and so don't
// satisfy its no-error DecodeBinary signature.
type binEncodable interface {
	EncodeBinary(w *io.BinWriter)
}

// SendEncodable encodes e via its EncodeBinary method and sends it.
func (p *Peer) SendEncodable(cmd CommandType, e binEncodable) error {
	bw := io.NewBufBinWriter()
	e.EncodeBinary(bw.BinWriter)
	return p.Send(cmd, bw.Bytes())
}

// Handshake performs the version/verack exchange both ways and populates
// p.Remote on success (spec.md §6 "peers exchange a version handshake
// before any other traffic is accepted").
func (p *Peer) Handshake() error {
	done := make(chan error, 1)
	go func() { done <- p.handshake() }()

	select {
	case err := <-done:
		return err
	case <-time.After(HandshakeTimeout):
		p.Conn.Close()
		return ErrHandshakeTimeout
	}
}

func (p *Peer) handshake() error {
	local := &VersionPayload{
		Network:   p.Cfg.Network,
		Version:   p.Cfg.Version,
		Timestamp: uint32(time.Now().Unix()),
		Nonce:     p.Cfg.Nonce,
		UserAgent: p.Cfg.UserAgent,
		Relay:     true,
	}
	if err := p.SendEncodable(CmdVersion, local); err != nil {
		return err
	}

	msg, err := ReadMessage(p.Conn, p.Cfg.Network)
	if err != nil {
		return err
	}
	if msg.Command != CmdVersion {
		return ErrUnexpectedCmd
	}
	remote := &VersionPayload{}
	if err := remote.DecodeBinary(io.NewBinReaderFromBuf(msg.Payload)); err != nil {
		return err
	}
	if remote.Network != p.Cfg.Network {
		return ErrNetworkMismatch
	}
	p.Remote = remote

	if err := p.Send(CmdVerack, nil); err != nil {
		return err
	}
	ack, err := ReadMessage(p.Conn, p.Cfg.Network)
	if err != nil {
		return err
	}
	if ack.Command != CmdVerack {
		return ErrUnexpectedCmd
	}
	return nil
}

// Run reads and dispatches messages until reading fails or the peer is
// banned, scoring ban deltas for every malformed or rejected message
// (spec.md §7). It returns when the peer should be disconnected.
func (p *Peer) Run(h Handler) error {
	for {
		msg, err := ReadMessage(p.Conn, p.Cfg.Network)
		if err != nil {
			p.Ban.Add(time.Now(), ScoreDecodeError)
			return fmt.Errorf("network: read from peer: %w", err)
		}

		if err := p.dispatch(h, msg); err != nil {
			delta := defaultDelta(msg.Command)
			var rej *Reject
			if errors.As(err, &rej) {
				delta = rej.Delta
			}
			score := p.Ban.Add(time.Now(), delta)
			if score >= BanThreshold {
				p.Conn.Close()
				return fmt.Errorf("network: peer banned (score %.0f): %w", score, err)
			}
		}
	}
}

func (p *Peer) dispatch(h Handler, msg *Message) error {
	r := io.NewBinReaderFromBuf(msg.Payload)
	switch msg.Command {
	case CmdVersion:
		v := &VersionPayload{}
		if err := v.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnVersion(p, v)
	case CmdInv:
		inv := &InvPayload{}
		if err := inv.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnInv(p, inv)
	case CmdGetData:
		inv := &InvPayload{}
		if err := inv.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnGetData(p, inv)
	case CmdNotFound:
		inv := &InvPayload{}
		if err := inv.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnNotFound(p, inv)
	case CmdGetBlockByIndex:
		g := &GetBlockByIndexPayload{}
		if err := g.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnGetBlockByIndex(p, g)
	case CmdBlock:
		return h.OnBlock(p, msg.Payload)
	case CmdTransaction:
		return h.OnTx(p, msg.Payload)
	case CmdPing:
		ping := &PingPayload{}
		if err := ping.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnPing(p, ping)
	case CmdPong:
		pong := &PingPayload{}
		if err := pong.DecodeBinary(r); err != nil {
			return err
		}
		return h.OnPong(p, pong)
	default:
		return nil
	}
}

// defaultDelta returns the ban-score delta for an unwrapped handler error
// on the given command (spec.md §7 reject-kind table).
func defaultDelta(cmd CommandType) int {
	switch cmd {
	case CmdBlock:
		return ScoreInvalidBlock
	case CmdGetBlockByIndex:
		return ScoreInvalidHeader
	case CmdInv:
		return ScoreInvalidInv
	case CmdTransaction:
		return ScoreInvalidTx
	case CmdGetData, CmdNotFound:
		return ScoreInvalidGetData
	default:
		return ScoreDecodeError
	}
}
