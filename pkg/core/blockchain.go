// Package core implements the Neo N3 ledger: block/transaction
// validation, the OnPersist/Application/PostPersist execution pipeline,
// and the persisted chain state every other subsystem reads through
// (spec.md §4.4 "Ledger", §3 "Blockchain").
package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/nspcc-dev/neo-go-core/pkg/config"
	"github.com/nspcc-dev/neo-go-core/pkg/core/block"
	"github.com/nspcc-dev/neo-go-core/pkg/core/dao"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interop"
	"github.com/nspcc-dev/neo-go-core/pkg/core/interopservice"
	"github.com/nspcc-dev/neo-go-core/pkg/core/mempool"
	"github.com/nspcc-dev/neo-go-core/pkg/core/native"
	"github.com/nspcc-dev/neo-go-core/pkg/core/state"
	"github.com/nspcc-dev/neo-go-core/pkg/core/storage"
	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/nspcc-dev/neo-go-core/pkg/vm"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// Ledger-level storage keys live in a byte range (0x00-0x0F) disjoint
// from contract storage, whose keys always begin with a sign-flipped
// contract id and so start at 0x7F (natives, small negative ids) or
// 0x80 upward (deployed contracts), per state.StorageKey.Bytes().
const (
	keyBlock       byte = 0x00 // + 32-byte hash -> encoded block
	keyHeightIndex byte = 0x01 // + 4-byte BE height -> 32-byte hash
	keyTxLocation  byte = 0x02 // + 32-byte hash -> 4-byte BE height + encoded tx
	keyCurrent     byte = 0x03 // -> 4-byte BE height + 32-byte hash
)

func blockKey(h util.Uint256) []byte    { return append([]byte{keyBlock}, h[:]...) }
func txKey(h util.Uint256) []byte       { return append([]byte{keyTxLocation}, h[:]...) }
func heightIndexKey(i uint32) []byte {
	b := make([]byte, 5)
	b[0] = keyHeightIndex
	binary.BigEndian.PutUint32(b[1:], i)
	return b
}

// Errors returned by block/transaction admission (spec.md §7's fatal
// validation outcomes, here surfaced as Go errors rather than a
// dedicated reject-reason enum).
var (
	ErrInvalidBlockIndex    = errors.New("block index does not extend the current chain")
	ErrInvalidPrevHash      = errors.New("block previous hash does not match chain tip")
	ErrInvalidTimestamp     = errors.New("block timestamp does not advance monotonically")
	ErrBlockTooLarge        = errors.New("block exceeds maximum size")
	ErrTooManyTransactions  = errors.New("block exceeds maximum transaction count")
	ErrBlockWitnessRejected = errors.New("block witness failed verification")
	ErrTxAlreadyOnChain     = errors.New("transaction already persisted")
	ErrTxExpired            = errors.New("transaction is not valid at this height")
	ErrTxNetworkFeeTooLow   = errors.New("network fee below the computed minimum")
	ErrTxInsufficientFunds  = errors.New("sender cannot cover system and network fee")
	ErrWitnessCountMismatch = errors.New("witness count does not match signer count")
	ErrWitnessHashMismatch  = errors.New("witness verification script hash does not match signer account")
	ErrWitnessFaulted       = errors.New("witness verification script faulted")
	ErrWitnessRejected      = errors.New("witness verification script returned false")
	ErrAccountBlocked       = errors.New("signer account is blocked by policy")
)

// Blockchain is the persisted chain: one DataCache root over a Store,
// the native contract suite, and the syscall registry every application
// engine invocation shares. A single mutex serializes block persistence
// and the state queries (GetBlock, GetTransaction, ...) that must never
// observe a half-committed block (spec.md §4.4 "whole-block rejection").
type Blockchain struct {
	mu sync.RWMutex

	cfg     *config.ProtocolConfiguration
	network uint32
	store   storage.Store
	dao     *dao.Simple
	natives *native.Suite
	funcs   []interop.Function
	log     *zap.Logger

	pool    *mempool.Pool
	headers *HeaderCache

	height      uint32
	currentHash util.Uint256
}

var _ interop.Ledger = (*Blockchain)(nil)

// New builds a Blockchain over store, constructing the native contract
// suite and persisting the genesis block on first run (spec.md §4.4
// "genesis block construction"). genesisAccount receives the entire NEO
// and GAS supply and becomes the genesis block's NextConsensus, the
// simplification DESIGN.md records for the missing multisig
// redeem-script builder.
func New(store storage.Store, cfg *config.ProtocolConfiguration, network uint32, genesisAccount util.Uint160, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		log = zap.NewNop()
	}
	bc := &Blockchain{
		cfg:     cfg,
		network: network,
		store:   store,
		dao:     dao.NewSimple(store),
		natives: native.NewSuite(cfg, genesisAccount),
		funcs:   interopservice.DefaultFunctions(),
		log:     log,
		pool:    mempool.New(cfg.MemPoolSize),
		headers: NewHeaderCache(),
	}
	if err := bc.init(genesisAccount); err != nil {
		return nil, err
	}
	return bc, nil
}

func (bc *Blockchain) init(genesisAccount util.Uint160) error {
	v, err := bc.dao.Get([]byte{keyCurrent})
	if err == nil && len(v) >= 4+util.Uint256Size {
		bc.height = binary.BigEndian.Uint32(v[:4])
		copy(bc.currentHash[:], v[4:4+util.Uint256Size])
		return nil
	}
	return bc.persistGenesis(genesisAccount)
}

func (bc *Blockchain) persistGenesis(genesisAccount util.Uint160) error {
	genesis := &block.Block{Header: block.Header{
		Version:       0,
		NextConsensus: genesisAccount,
		Index:         0,
	}}
	genesis.MerkleRoot = genesis.ComputeMerkleRoot()

	snapshot := bc.dao.GetPrivate()
	ic := bc.newContext(snapshot, trigger.System, genesis, nil)
	if err := bc.natives.InitializeAll(ic); err != nil {
		return fmt.Errorf("genesis initialize: %w", err)
	}
	if err := bc.natives.OnPersistAll(ic); err != nil {
		return fmt.Errorf("genesis onpersist: %w", err)
	}
	if err := bc.natives.PostPersistAll(ic); err != nil {
		return fmt.Errorf("genesis postpersist: %w", err)
	}
	bc.indexBlock(snapshot, genesis)
	if err := snapshot.Commit(); err != nil {
		return err
	}
	bc.height = genesis.Index
	bc.currentHash = genesis.Hash()
	return nil
}

// newContext builds an application engine Context sharing this chain's
// native suite and syscall registry.
func (bc *Blockchain) newContext(d *dao.Simple, trig trigger.Type, blk *block.Block, tx *transaction.Transaction) *interop.Context {
	ic := interop.NewContext(bc, bc.network, d, trig, bc.log)
	ic.Natives = bc.natives.Contracts
	ic.Functions = bc.funcs
	ic.Block = blk
	ic.Tx = tx
	return ic
}

// --- interop.Ledger ---

// BlockHeight returns the index of the last persisted block.
func (bc *Blockchain) BlockHeight() uint32 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.height
}

// CurrentBlockHash returns the hash of the last persisted block.
func (bc *Blockchain) CurrentBlockHash() util.Uint256 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentHash
}

// GetBlock fetches a persisted block by height.
func (bc *Blockchain) GetBlock(index uint32) (*block.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.getBlockLocked(index)
}

func (bc *Blockchain) getBlockLocked(index uint32) (*block.Block, error) {
	hv, err := bc.dao.Get(heightIndexKey(index))
	if err != nil {
		return nil, storage.ErrKeyNotFound
	}
	var h util.Uint256
	copy(h[:], hv)
	bv, err := bc.dao.Get(blockKey(h))
	if err != nil {
		return nil, err
	}
	blk := &block.Block{}
	if err := decodeBlock(bv, blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// GetContract resolves a deployed or native contract by hash.
func (bc *Blockchain) GetContract(hash util.Uint160) (*state.Contract, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	for _, n := range bc.natives.Contracts {
		if n.Metadata().Hash == hash {
			return n.Metadata().AsContractState(), nil
		}
	}
	return bc.natives.Management.GetContractByDAO(bc.dao, hash)
}

// GetTransaction fetches a persisted transaction and the height of the
// block that carried it.
func (bc *Blockchain) GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	v, err := bc.dao.Get(txKey(h))
	if err != nil {
		return nil, 0, err
	}
	height := binary.BigEndian.Uint32(v[:4])
	tx := &transaction.Transaction{}
	if err := decodeTx(v[4:], tx); err != nil {
		return nil, 0, err
	}
	return tx, height, nil
}

// IsTraceableBlock reports whether index is within MaxTraceableBlocks of
// the current height (spec.md §4.4 "historical queries beyond the
// traceable window are refused").
func (bc *Blockchain) IsTraceableBlock(index uint32) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if index > bc.height {
		return false
	}
	return bc.height-index <= bc.cfg.MaxTraceableBlocks
}

// Pool exposes the mempool this chain evicts included/expired
// transactions from on every commit.
func (bc *Blockchain) Pool() *mempool.Pool { return bc.pool }

// Headers exposes the header-ahead-of-blocks cache.
func (bc *Blockchain) Headers() *HeaderCache { return bc.headers }

// --- block validation (spec.md §4.4 steps 1-3) ---

// ValidateBlock runs every structural and per-transaction pre-execution
// check spec.md §4.4 requires before a block may be persisted: header
// linkage, size/count/fee limits, the Merkle root, per-transaction
// validity, and the block witness itself.
func (bc *Blockchain) ValidateBlock(blk *block.Block) error {
	bc.mu.RLock()
	height, tip := bc.height, bc.currentHash
	bc.mu.RUnlock()

	if blk.Index != height+1 {
		return ErrInvalidBlockIndex
	}
	if blk.PrevHash != tip {
		return ErrInvalidPrevHash
	}
	prev, err := bc.GetBlock(height)
	if err == nil && blk.Timestamp <= prev.Timestamp {
		return ErrInvalidTimestamp
	}
	if len(blk.Transactions) > bc.cfg.MaxTransactionsPerBlock {
		return ErrTooManyTransactions
	}
	if err := blk.Verify(); err != nil {
		return err
	}

	var size int
	for _, tx := range blk.Transactions {
		size += tx.Size()
	}
	if uint32(size) > bc.cfg.MaxBlockSize {
		return ErrBlockTooLarge
	}

	seen := make(map[util.Uint256]bool, len(blk.Transactions))
	for _, tx := range blk.Transactions {
		h := tx.Hash()
		if seen[h] {
			return fmt.Errorf("duplicate transaction %s in block: %w", h.StringLE(), transaction.ErrDuplicateSigner)
		}
		seen[h] = true
		if err := bc.verifyTransaction(tx); err != nil {
			return fmt.Errorf("tx %s: %w", h.StringLE(), err)
		}
	}

	return bc.verifyBlockWitness(blk)
}

// verifyBlockWitness checks the block header's witness against the
// previous block's NextConsensus account, the same account-to-script
// binding a transaction signer carries (spec.md §4.4 "witness hash must
// equal the next-consensus of the previous block").
func (bc *Blockchain) verifyBlockWitness(blk *block.Block) error {
	prev, err := bc.GetBlock(blk.Index - 1)
	if err != nil {
		return err
	}
	snapshot := bc.dao.GetPrivate()
	ic := bc.newContext(snapshot, trigger.Verification, blk, nil)
	return bc.checkWitness(ic, prev.NextConsensus, blk.Witness, bc.cfg.MaxBlockSystemFee)
}

// ValidateTransaction applies the same pre-execution checks AddBlock
// applies per-transaction, exported for the mempool's admission callback
// (spec.md §4.5 "verification uses a read-only snapshot of the current
// committed state").
func (bc *Blockchain) ValidateTransaction(tx *transaction.Transaction) error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.verifyTransaction(tx)
}

// verifyTransaction runs spec.md §4.4's per-transaction pre-checks: the
// structural envelope (version, validity window, non-empty unique
// signers, no duplicate/conflicting hash), sender GAS sufficiency, the
// network fee floor, and every signer's witness.
func (bc *Blockchain) verifyTransaction(tx *transaction.Transaction) error {
	if tx.Version != 0 {
		return fmt.Errorf("unsupported transaction version %d", tx.Version)
	}
	if tx.ValidUntilBlock <= bc.height || tx.ValidUntilBlock > bc.height+bc.cfg.MaxValidUntilBlockIncrement {
		return ErrTxExpired
	}
	if len(tx.Signers) == 0 {
		return transaction.ErrNoSigners
	}
	if len(tx.Witnesses) != len(tx.Signers) {
		return ErrWitnessCountMismatch
	}
	if _, _, err := bc.GetTransaction(tx.Hash()); err == nil {
		return ErrTxAlreadyOnChain
	}

	snapshot := bc.dao.GetPrivate()
	verifyIC := bc.newContext(snapshot, trigger.Application, nil, tx)
	for _, s := range tx.Signers {
		if bc.natives.Policy.IsBlocked(verifyIC, s.Account) {
			return ErrAccountBlocked
		}
	}

	policyIC := bc.newContext(bc.dao, trigger.Application, nil, nil)
	feePerByte := bc.natives.Policy.FeePerByte(policyIC).Int64()
	minNetworkFee := feePerByte * int64(tx.Size())
	if tx.NetworkFee < minNetworkFee {
		return ErrTxNetworkFeeTooLow
	}

	sender := tx.Sender()
	senderBalance := bc.natives.Gas.Balance(policyIC, sender)
	required := tx.SystemFee + tx.NetworkFee
	if senderBalance.Int64() < required {
		return ErrTxInsufficientFunds
	}

	witnessGas := tx.NetworkFee - int64(tx.Size())
	for i, s := range tx.Signers {
		wIC := bc.newContext(bc.dao.GetPrivate(), trigger.Verification, nil, tx)
		if err := bc.checkWitness(wIC, s.Account, tx.Witnesses[i], witnessGas); err != nil {
			return err
		}
	}
	return nil
}

// checkWitness runs a signer's (invocation, verification) script pair
// through a fresh VM: the verification script is loaded first so the
// invocation script, pushed on top, runs first and leaves its data
// (typically a signature) on the shared evaluation stack for the
// verification script to consume via System.Crypto.CheckSig or
// System.Runtime.CheckWitness (spec.md §4.4 "witness verification").
func (bc *Blockchain) checkWitness(ic *interop.Context, account util.Uint160, w transaction.Witness, gasLimit int64) error {
	if w.ScriptHash() != account {
		return ErrWitnessHashMismatch
	}
	if gasLimit < 0 {
		gasLimit = 0
	}
	v := vm.New()
	v.GasLimit = gasLimit
	v.Syscall = ic.SyscallHandler
	ic.VM = v
	if err := v.LoadScript(vm.NewScript(w.VerificationScript), callflag.ReadOnly); err != nil {
		return err
	}
	if err := v.LoadScript(vm.NewScript(w.InvocationScript), callflag.ReadOnly); err != nil {
		return err
	}
	st := v.Run()
	ic.Finalize()
	if st != vmstate.Halt {
		return ErrWitnessFaulted
	}
	result, err := v.Estack().Pop()
	if err != nil {
		return err
	}
	if !result.Boolean() {
		return ErrWitnessRejected
	}
	return nil
}

// --- persistence pipeline (spec.md §4.4 steps 4-7) ---

// recordedTx is one transaction's outcome, bundled for txKey/Notify
// bookkeeping after a block commits.
type recordedTx struct {
	tx            *transaction.Transaction
	state         vmstate.State
	gasConsumed   int64
	notifications []state.NotificationEvent
}

// AddBlock validates blk and, if it passes, runs the full persistence
// pipeline: a write-through snapshot, OnPersist on every native, a
// fresh application engine per transaction under the Application
// trigger, PostPersist on every native, and a single atomic commit
// (spec.md §4.4). A transaction that faults still had its fees burned
// during OnPersist, so it is recorded with its FAULT state but its own
// writes are discarded; only failures in validation or native execution
// reject the whole block.
func (bc *Blockchain) AddBlock(blk *block.Block) error {
	if err := bc.ValidateBlock(blk); err != nil {
		return err
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	snapshot := bc.dao.GetPrivate()
	onPersistIC := bc.newContext(snapshot, trigger.System, blk, nil)
	if err := bc.natives.OnPersistAll(onPersistIC); err != nil {
		return fmt.Errorf("onpersist: %w", err)
	}

	var included []util.Uint256
	records := make([]recordedTx, 0, len(blk.Transactions))
	for _, tx := range blk.Transactions {
		rec := bc.executeTransaction(snapshot, blk, tx)
		included = append(included, tx.Hash())
		records = append(records, rec)
	}

	postPersistIC := bc.newContext(snapshot, trigger.System, blk, nil)
	if err := bc.natives.PostPersistAll(postPersistIC); err != nil {
		return fmt.Errorf("postpersist: %w", err)
	}

	bc.indexBlock(snapshot, blk)
	for _, rec := range records {
		bc.indexTransaction(snapshot, blk.Index, rec.tx)
	}
	if err := snapshot.Commit(); err != nil {
		return err
	}

	bc.height = blk.Index
	bc.currentHash = blk.Hash()
	bc.pool.UpdatePoolForBlockPersisted(blk.Index, included)
	bc.headers.Evict(blk.Index)
	return nil
}

// executeTransaction runs tx in its own write-isolated overlay of
// blockSnapshot (rooted at the post-OnPersist cache) under a fresh
// application engine; a HALT commits its local writes into
// blockSnapshot, a FAULT discards them (spec.md §4.4 step 3).
func (bc *Blockchain) executeTransaction(blockSnapshot *dao.Simple, blk *block.Block, tx *transaction.Transaction) recordedTx {
	txSnapshot := blockSnapshot.GetPrivate()
	ic := bc.newContext(txSnapshot, trigger.Application, blk, tx)
	v := vm.New()
	v.GasLimit = tx.SystemFee
	v.Syscall = ic.SyscallHandler
	ic.VM = v

	st := vmstate.Fault
	if err := v.LoadScript(vm.NewScript(tx.Script), callflag.All); err == nil {
		st = v.Run()
	}
	ic.Finalize()

	if st == vmstate.Halt {
		_ = txSnapshot.Commit()
	}
	return recordedTx{tx: tx, state: st, gasConsumed: v.GasConsumed(), notifications: ic.Notifications}
}

func (bc *Blockchain) indexBlock(d *dao.Simple, blk *block.Block) {
	h := blk.Hash()
	d.Put(blockKey(h), encodeBlock(blk))
	d.Put(heightIndexKey(blk.Index), h[:])
	cur := make([]byte, 4+util.Uint256Size)
	binary.BigEndian.PutUint32(cur, blk.Index)
	copy(cur[4:], h[:])
	d.Put([]byte{keyCurrent}, cur)
}

func (bc *Blockchain) indexTransaction(d *dao.Simple, height uint32, tx *transaction.Transaction) {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, height)
	d.Put(txKey(tx.Hash()), append(v, encodeTx(tx)...))
}

func encodeBlock(blk *block.Block) []byte {
	w := io.NewBufBinWriter()
	blk.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

func decodeBlock(b []byte, blk *block.Block) error {
	r := io.NewBinReaderFromBuf(b)
	if err := blk.DecodeBinary(r); err != nil {
		return err
	}
	return r.Err
}

func encodeTx(tx *transaction.Transaction) []byte {
	w := io.NewBufBinWriter()
	tx.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

func decodeTx(b []byte, tx *transaction.Transaction) error {
	r := io.NewBinReaderFromBuf(b)
	if err := tx.DecodeBinary(r); err != nil {
		return err
	}
	return r.Err
}
