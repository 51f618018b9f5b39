package network

import (
	"sync"

	"github.com/nspcc-dev/neo-go-core/pkg/core"
	"github.com/nspcc-dev/neo-go-core/pkg/core/block"
	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"go.uber.org/zap"
)

// ServerConfig bounds the peer table and the queues feeding the ledger
// thread (spec.md §5 "P2P I/O handlers ... communicate with the ledger
// via bounded queues").
type ServerConfig struct {
	Peer            PeerConfig
	MinPeers        int
	MaxPeers        int
	MaxPeersPerAddr int
	BlockQueueSize  int
	TxQueueSize     int
	BroadcastSize   int
}

// DefaultServerConfig mirrors the reference node's defaults.
func DefaultServerConfig(peer PeerConfig) ServerConfig {
	return ServerConfig{
		Peer:            peer,
		MinPeers:        4,
		MaxPeers:        40,
		MaxPeersPerAddr: 3,
		BlockQueueSize:  256,
		TxQueueSize:     4096,
		BroadcastSize:   1024,
	}
}

// Server owns the peer table and the bounded inbound/outbound queues
// that decouple P2P I/O from the single-threaded ledger pipeline
// (spec.md §5). It feeds accepted blocks and transactions to the chain.
type Server struct {
	cfg   ServerConfig
	chain *core.Blockchain
	log   *zap.Logger

	mu    sync.Mutex
	peers map[*Peer]struct{}

	blockQueue     chan *block.Block
	txQueue        chan *transaction.Transaction
	broadcastQueue chan *Message
}

// NewServer wires a Server against chain, ready to accept peers via
// AddPeer and to have its queues drained by Run.
func NewServer(cfg ServerConfig, chain *core.Blockchain, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:            cfg,
		chain:          chain,
		log:            log,
		peers:          make(map[*Peer]struct{}),
		blockQueue:     make(chan *block.Block, cfg.BlockQueueSize),
		txQueue:        make(chan *transaction.Transaction, cfg.TxQueueSize),
		broadcastQueue: make(chan *Message, cfg.BroadcastSize),
	}
}

// PeerCount returns the number of peers currently tracked.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// AddPeer registers p in the peer table, enforcing MaxPeers. The caller
// is expected to have already completed p.Handshake().
func (s *Server) AddPeer(p *Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.peers) >= s.cfg.MaxPeers {
		return false
	}
	s.peers[p] = struct{}{}
	return true
}

// RemovePeer drops p from the peer table, called once its Run loop
// returns (connection closed, handshake failed, or banned).
func (s *Server) RemovePeer(p *Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p)
}

// NeedsMorePeers reports whether the peer table is below MinPeers, the
// signal the connection-lifecycle task uses to seed new outbound dials
// (spec.md §5 "seeds new connections toward the configured
// minimum-desired-connections target").
func (s *Server) NeedsMorePeers() bool {
	return s.PeerCount() < s.cfg.MinPeers
}

// Broadcast enqueues a message for fan-out to every connected peer,
// dropping it (rather than blocking the ledger thread) if the queue is
// full.
func (s *Server) Broadcast(cmd CommandType, payload []byte) bool {
	select {
	case s.broadcastQueue <- &Message{Magic: s.cfg.Peer.Network, Command: cmd, Payload: payload}:
		return true
	default:
		s.log.Warn("broadcast queue full, dropping message", zap.Stringer("command", cmd))
		return false
	}
}

// runBroadcast drains the broadcast queue to every currently connected
// peer. Meant to run on its own goroutine.
func (s *Server) runBroadcast() {
	for msg := range s.broadcastQueue {
		s.mu.Lock()
		peers := make([]*Peer, 0, len(s.peers))
		for p := range s.peers {
			peers = append(peers, p)
		}
		s.mu.Unlock()
		for _, p := range peers {
			_ = p.Send(msg.Command, msg.Payload)
		}
	}
}

// runBlocks drains the inbound block queue onto the single ledger
// thread, the only goroutine that ever calls chain.AddBlock
// (spec.md §5 "strictly single-threaded with respect to the committed
// store").
func (s *Server) runBlocks() {
	for blk := range s.blockQueue {
		if err := s.chain.AddBlock(blk); err != nil {
			s.log.Warn("rejected block", zap.Uint32("index", blk.Index), zap.Error(err))
			continue
		}
		inv := &InvPayload{Type: InvTypeBlock, Hashes: []util.Uint256{blk.Hash()}}
		s.Broadcast(CmdInv, encode(inv))
	}
}

// runTxs drains the inbound transaction queue into the mempool.
func (s *Server) runTxs() {
	pool := s.chain.Pool()
	for tx := range s.txQueue {
		err := pool.TryAdd(tx, s.chain.ValidateTransaction)
		if err != nil {
			s.log.Debug("rejected transaction", zap.String("hash", tx.Hash().StringLE()), zap.Error(err))
			continue
		}
		inv := &InvPayload{Type: InvTypeTx, Hashes: []util.Uint256{tx.Hash()}}
		s.Broadcast(CmdInv, encode(inv))
	}
}

// Run starts the queue-draining goroutines. It returns immediately; the
// goroutines run until their queues are closed.
func (s *Server) Run() {
	go s.runBlocks()
	go s.runTxs()
	go s.runBroadcast()
}

// EnqueueBlock pushes a decoded block onto the inbound queue, blocking
// the calling P2P handler (never the ledger thread) with back-pressure
// when full (spec.md §5 "queue pushes with back-pressure when full").
func (s *Server) EnqueueBlock(blk *block.Block) {
	s.blockQueue <- blk
}

// EnqueueTx pushes a decoded transaction onto the inbound queue.
func (s *Server) EnqueueTx(tx *transaction.Transaction) {
	s.txQueue <- tx
}

// encode serializes e via its EncodeBinary method, the same narrow
// binEncodable interface SendEncodable uses.
func encode(e binEncodable) []byte {
	bw := io.NewBufBinWriter()
	e.EncodeBinary(bw.BinWriter)
	return bw.Bytes()
}
