// Package bloom implements the per-peer Bloom filter used to thin block
// relay to only the transactions a light client cares about
// (spec.md §6 "FilterLoad/FilterAdd/FilterClear narrow relay to a
// peer-supplied Bloom filter").
package bloom

import (
	"errors"

	"github.com/twmb/murmur3"
)

// MaxFilterBits and MaxHashFuncs bound a FilterLoad payload so a peer
// cannot force an unbounded allocation.
const (
	MaxFilterBits  = 36000 * 8
	MaxHashFuncs   = 50
	seedMultiplier = 0xfba4c795
)

var (
	ErrTooManyBits   = errors.New("bloom: filter exceeds maximum size")
	ErrTooManyHashes = errors.New("bloom: too many hash functions")
)

// Filter is a Neo-style Bloom filter: a bit vector tested with K
// independent murmur3 hashes, each seeded by its index so no auxiliary
// seed table is needed.
type Filter struct {
	bits  []byte
	nBits uint32
	k     uint32
	tweak uint32
}

// New returns an empty filter sized for nBits bits and k hash functions,
// salted by tweak (a per-peer value so two peers loading identical
// filters don't produce identical bit patterns).
func New(nBits, k, tweak uint32) (*Filter, error) {
	if nBits == 0 || nBits > MaxFilterBits {
		return nil, ErrTooManyBits
	}
	if k == 0 || k > MaxHashFuncs {
		return nil, ErrTooManyHashes
	}
	return &Filter{
		bits:  make([]byte, (nBits+7)/8),
		nBits: nBits,
		k:     k,
		tweak: tweak,
	}, nil
}

// Load reconstructs a filter from a FilterLoad payload's raw bit vector.
func Load(data []byte, k, tweak uint32) (*Filter, error) {
	nBits := uint32(len(data)) * 8
	f, err := New(nBits, k, tweak)
	if err != nil {
		return nil, err
	}
	copy(f.bits, data)
	return f, nil
}

// Bytes returns the filter's raw bit vector, as sent back out in a
// FilterLoad relay or persisted alongside a peer record.
func (f *Filter) Bytes() []byte {
	return f.bits
}

func (f *Filter) hash(data []byte, i uint32) uint32 {
	seed := i*seedMultiplier + f.tweak
	return murmur3.Sum32WithSeed(data, seed) % f.nBits
}

// Add sets the bits data hashes to.
func (f *Filter) Add(data []byte) {
	for i := uint32(0); i < f.k; i++ {
		bit := f.hash(data, i)
		f.bits[bit/8] |= 1 << (bit % 8)
	}
}

// Test reports whether data may be a member: all K of its bits are set.
// False positives are possible; false negatives are not.
func (f *Filter) Test(data []byte) bool {
	for i := uint32(0); i < f.k; i++ {
		bit := f.hash(data, i)
		if f.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// Clear zeroes every bit, equivalent to a FilterClear command.
func (f *Filter) Clear() {
	for i := range f.bits {
		f.bits[i] = 0
	}
}
