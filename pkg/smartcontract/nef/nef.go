// Package nef implements the Neo Executable Format container: a
// contract's compiled script plus compiler tag and checksum (spec.md
// §3 "NEF container", GLOSSARY "NEF").
package nef

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/nspcc-dev/neo-go-core/pkg/io"
)

// Magic is the fixed 4-byte NEF file signature.
const Magic uint32 = 0x3346454E // "NEF3"

// MaxScriptLength bounds a single contract's compiled script size.
const MaxScriptLength = 512 * 1024

// File is the deserialized NEF container.
type File struct {
	Magic       uint32
	Compiler    string // zero-padded to 64 bytes on the wire
	Source      string
	Tokens      []MethodToken
	Script      []byte
	Checksum    uint32
}

// MethodToken references an external contract method a script may
// invoke via CALLT, bundled so the callee can be resolved without a
// runtime string lookup.
type MethodToken struct {
	Hash       [20]byte
	Method     string
	ParamCount uint16
	HasReturn  bool
	CallFlag   byte
}

var ErrInvalidMagic = errors.New("invalid NEF magic")
var ErrInvalidChecksum = errors.New("invalid NEF checksum")
var ErrScriptTooLong = errors.New("script exceeds maximum length")

// CalcChecksum computes the NEF checksum: the first 4 bytes of
// double-SHA256 over every field preceding the checksum itself.
func CalcChecksum(f *File) uint32 {
	w := io.NewBufBinWriter()
	encodeHeader(w, f)
	first := sha256.Sum256(w.Bytes())
	second := sha256.Sum256(first[:])
	return binary.LittleEndian.Uint32(second[:4])
}

func encodeHeader(w *io.BufBinWriter, f *File) {
	w.WriteU32LE(f.Magic)
	w.WriteBytes(padString(f.Compiler, 64))
	w.WriteVarBytes([]byte(f.Source))
	w.WriteU8(0) // reserved
	w.WriteVarUint(uint64(len(f.Tokens)))
	for _, t := range f.Tokens {
		w.WriteBytes(t.Hash[:])
		w.WriteVarBytes([]byte(t.Method))
		w.WriteU16LE(t.ParamCount)
		w.WriteB(t.HasReturn)
		w.WriteU8(t.CallFlag)
	}
	w.WriteU16LE(0) // reserved
	w.WriteVarBytes(f.Script)
}

func padString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// NewFile builds a File over script, stamping the computed checksum.
func NewFile(compiler, source string, script []byte, tokens []MethodToken) (*File, error) {
	if len(script) > MaxScriptLength {
		return nil, ErrScriptTooLong
	}
	f := &File{Magic: Magic, Compiler: compiler, Source: source, Tokens: tokens, Script: script}
	f.Checksum = CalcChecksum(f)
	return f, nil
}

// FileFromBytes parses a raw NEF container, as Management.deploy must
// when a caller submits a contract for the first time.
func FileFromBytes(b []byte) (*File, error) {
	r := io.NewBinReaderFromBuf(b)
	f := &File{}
	f.Magic = r.ReadU32LE()
	compiler := make([]byte, 64)
	r.ReadBytes(compiler)
	f.Compiler = string(bytesTrimRight(compiler))
	f.Source = string(r.ReadVarBytes(2048))
	_ = r.ReadU8() // reserved
	n := r.ReadVarUint()
	f.Tokens = make([]MethodToken, n)
	for i := range f.Tokens {
		r.ReadBytes(f.Tokens[i].Hash[:])
		f.Tokens[i].Method = string(r.ReadVarBytes(32))
		f.Tokens[i].ParamCount = r.ReadU16LE()
		f.Tokens[i].HasReturn = r.ReadB()
		f.Tokens[i].CallFlag = r.ReadU8()
	}
	_ = r.ReadU16LE() // reserved
	f.Script = r.ReadVarBytes(MaxScriptLength)
	f.Checksum = r.ReadU32LE()
	if r.Err != nil {
		return nil, r.Err
	}
	if err := Verify(f); err != nil {
		return nil, err
	}
	return f, nil
}

func bytesTrimRight(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

// Verify checks the magic and checksum of a decoded File.
func Verify(f *File) error {
	if f.Magic != Magic {
		return ErrInvalidMagic
	}
	if f.Checksum != CalcChecksum(f) {
		return ErrInvalidChecksum
	}
	if len(f.Script) > MaxScriptLength {
		return ErrScriptTooLong
	}
	return nil
}
