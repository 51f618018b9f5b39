package core

import (
	"sync"

	"github.com/nspcc-dev/neo-go-core/pkg/core/block"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// HeaderCache holds downloaded headers ahead of the blocks that carry
// their transactions, the structure a P2P sync loop fills via
// GetHeaders/Headers (spec.md §6) while block bodies are still being
// fetched or verified. Blockchain evicts from it after each committed
// block and exposes it through Headers(); Blockchain.GetBlock does not
// read it.
type HeaderCache struct {
	mu      sync.RWMutex
	byIndex map[uint32]*block.Header
	byHash  map[util.Uint256]uint32
	height  uint32
}

// NewHeaderCache builds an empty cache.
func NewHeaderCache() *HeaderCache {
	return &HeaderCache{
		byIndex: make(map[uint32]*block.Header),
		byHash:  make(map[util.Uint256]uint32),
	}
}

// Add records h, extending the cache's known height if h is the new
// highest header seen. Headers are expected to arrive in order (as
// GetHeaders/Headers delivers them); an out-of-order header is still
// recorded but does not move the height forward.
func (c *HeaderCache) Add(h *block.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byIndex[h.Index] = h
	c.byHash[h.Hash()] = h.Index
	if h.Index > c.height || len(c.byIndex) == 1 {
		c.height = h.Index
	}
}

// Height returns the highest header index recorded.
func (c *HeaderCache) Height() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// GetHeader returns the header at index, if cached.
func (c *HeaderCache) GetHeader(index uint32) (*block.Header, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.byIndex[index]
	return h, ok
}

// GetHeaderByHash returns the header with the given hash, if cached.
func (c *HeaderCache) GetHeaderByHash(hash util.Uint256) (*block.Header, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byHash[hash]
	if !ok {
		return nil, false
	}
	return c.byIndex[idx], true
}

// Evict drops every cached header at or below index, called once the
// block pipeline has persisted past that point and no longer needs
// the header-only copy.
func (c *HeaderCache) Evict(index uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, h := range c.byIndex {
		if i <= index {
			delete(c.byHash, h.Hash())
			delete(c.byIndex, i)
		}
	}
}
