// Package mempool holds candidate transactions not yet included in a
// block (spec.md §4.5 "Memory Pool"): a fee-rate-ordered admission
// queue guarded by its own mutex, verified lazily against snapshots of
// committed state so admission never blocks the ledger thread (spec.md
// §5 "the mempool admits new transactions under a mutex").
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nspcc-dev/neo-go-core/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Status tags an entry's verification state.
type Status byte

const (
	// Unverified entries are left out of GetSortedVerified until
	// Reverify re-checks them (spec.md §4.5 "demoted to Unverified").
	Unverified Status = iota
	Verified
)

// item is one pool entry: the transaction plus its admission bookkeeping.
type item struct {
	tx      *transaction.Transaction
	status  Status
	feeRate float64 // network fee per byte, the pool's sort key
	addedAt int64
}

// ErrAlreadyExists is returned by TryAdd for a hash already in the pool.
var ErrAlreadyExists = errors.New("transaction already in pool")

// ErrPoolFull is returned by TryAdd when the pool is at capacity and the
// incoming transaction's fee rate does not exceed the lowest entry's.
var ErrPoolFull = errors.New("mempool is full")

// ErrConflict is returned by TryAdd when the incoming transaction
// conflicts with a pooled one via a Conflicts attribute.
var ErrConflict = errors.New("transaction conflicts with a pooled transaction")

// Pool is the TryAdd/Contains/GetSortedVerified/GetCount/
// InvalidateVerifiedTransactions/UpdatePoolForBlockPersisted surface
// spec.md §4.5 names.
type Pool struct {
	mu    sync.RWMutex
	items map[util.Uint256]*item
	// conflicts maps a Conflicts-attribute target hash to the hash of
	// the pooled transaction declaring it, so a later admission can be
	// rejected without scanning every entry.
	conflicts map[util.Uint256]util.Uint256
	capacity  int
}

// New builds an empty pool bounded by the configured
// memoryPoolMaxTransactions capacity (spec.md §4.5 "Bounded by
// configured memoryPoolMaxTransactions").
func New(capacity int) *Pool {
	return &Pool{
		items:     make(map[util.Uint256]*item),
		conflicts: make(map[util.Uint256]util.Uint256),
		capacity:  capacity,
	}
}

func feeRate(tx *transaction.Transaction) float64 {
	size := tx.Size()
	if size == 0 {
		return 0
	}
	return float64(tx.NetworkFee) / float64(size)
}

// TryAdd runs the pool's own admission checks (spec.md §4.5 "(1) cheap
// structural checks, (2) conflict check against pool ... (3) full
// witness and state-dependent verification"): verify is the caller's
// full witness/state check against the current committed snapshot,
// invoked only after the cheap pool-local checks pass.
func (p *Pool) TryAdd(tx *transaction.Transaction, verify func(*transaction.Transaction) error) error {
	h := tx.Hash()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.items[h]; ok {
		return ErrAlreadyExists
	}
	if _, ok := p.conflicts[h]; ok {
		return ErrConflict
	}
	for _, a := range tx.Attributes {
		if a.Type != transaction.Conflicts {
			continue
		}
		target, err := util.Uint256DecodeBytesBE(a.Data)
		if err != nil {
			continue
		}
		if _, ok := p.items[target]; ok {
			return ErrConflict
		}
	}

	rate := feeRate(tx)
	if len(p.items) >= p.capacity {
		victim := p.lowestFeeRateLocked()
		if victim == nil || victim.feeRate >= rate {
			return ErrPoolFull
		}
		p.removeLocked(victim.tx.Hash())
	}

	if verify != nil {
		if err := verify(tx); err != nil {
			return err
		}
	}

	it := &item{tx: tx, status: Verified, feeRate: rate, addedAt: time.Now().UnixNano()}
	p.items[h] = it
	for _, a := range tx.Attributes {
		if a.Type != transaction.Conflicts {
			continue
		}
		if target, err := util.Uint256DecodeBytesBE(a.Data); err == nil {
			p.conflicts[target] = h
		}
	}
	return nil
}

// lowestFeeRateLocked finds the pool's weakest entry; among entries
// with the lowest fee rate, the oldest is chosen.
func (p *Pool) lowestFeeRateLocked() *item {
	var worst *item
	for _, it := range p.items {
		if worst == nil || it.feeRate < worst.feeRate ||
			(it.feeRate == worst.feeRate && it.addedAt < worst.addedAt) {
			worst = it
		}
	}
	return worst
}

func (p *Pool) removeLocked(h util.Uint256) {
	delete(p.items, h)
	for target, src := range p.conflicts {
		if src == h {
			delete(p.conflicts, target)
		}
	}
}

// Contains reports whether hash is currently pooled, verified or not.
func (p *Pool) Contains(hash util.Uint256) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.items[hash]
	return ok
}

// GetCount returns the number of pooled transactions.
func (p *Pool) GetCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// GetSortedVerified returns every Verified entry sorted by
// (network-fee/size) desc, ties broken by timestamp asc (spec.md §4.5).
func (p *Pool) GetSortedVerified() []*transaction.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*item, 0, len(p.items))
	for _, it := range p.items {
		if it.status == Verified {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].feeRate != out[j].feeRate {
			return out[i].feeRate > out[j].feeRate
		}
		return out[i].addedAt < out[j].addedAt
	})
	txs := make([]*transaction.Transaction, len(out))
	for i, it := range out {
		txs[i] = it.tx
	}
	return txs
}

// InvalidateVerifiedTransactions demotes every Verified entry to
// Unverified, used after a reorg or config change invalidates the
// snapshot every admitted transaction was checked against.
func (p *Pool) InvalidateVerifiedTransactions() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, it := range p.items {
		it.status = Unverified
	}
}

// UpdatePoolForBlockPersisted removes every transaction the committed
// block carried, then drops any remaining entry whose valid-until-block
// has passed (spec.md §4.5 "Re-verification: on every block commit").
func (p *Pool) UpdatePoolForBlockPersisted(height uint32, included []util.Uint256) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range included {
		p.removeLocked(h)
	}
	for h, it := range p.items {
		if it.tx.ValidUntilBlock <= height {
			p.removeLocked(h)
		}
	}
}

// Demote marks hash Unverified, used when a sender's balance has
// dropped below what its pooled transactions require (spec.md §4.5
// "entries whose sender's balance decreased below fees are demoted").
func (p *Pool) Demote(hash util.Uint256) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if it, ok := p.items[hash]; ok {
		it.status = Unverified
	}
}

// Reverify re-checks every Unverified entry with verify, promoting it to
// Verified on success or dropping it on failure.
func (p *Pool) Reverify(verify func(*transaction.Transaction) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for h, it := range p.items {
		if it.status != Unverified {
			continue
		}
		if err := verify(it.tx); err != nil {
			p.removeLocked(h)
			continue
		}
		it.status = Verified
	}
}
