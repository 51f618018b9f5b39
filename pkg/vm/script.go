package vm

import (
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// Script is an immutable bytecode sequence, content-addressed by its
// UInt160 script hash (spec.md §3 "Script").
type Script struct {
	raw  []byte
	hash *util.Uint160
}

// NewScript wraps raw bytecode.
func NewScript(raw []byte) *Script {
	return &Script{raw: raw}
}

// Bytes returns the raw bytecode.
func (s *Script) Bytes() []byte { return s.raw }

// Len returns the script length in bytes.
func (s *Script) Len() int { return len(s.raw) }

// Hash returns the content-addressed script hash, computed lazily and
// cached (RIPEMD160(SHA256(bytes)), per spec.md §3).
func (s *Script) Hash() util.Uint160 {
	if s.hash == nil {
		h := hash.Hash160(s.raw)
		s.hash = &h
	}
	return *s.hash
}
