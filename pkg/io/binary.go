// Package io provides a Neo-specific binary reader/writer with variable-length
// integer and byte-array encoding, used by every serializable type in the core
// (blocks, transactions, stack items, NEF files).
package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrVarArraySize is returned when a decoded varint-prefixed array or
// string exceeds the caller-supplied maximum.
var ErrVarArraySize = errors.New("array is too big")

// BinWriter is a convenient wrapper around an io.Writer that keeps track
// of the first error encountered, so callers can chain writes and check
// the error once at the end.
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriterFromIO creates a BinWriter from a generic io.Writer.
func NewBinWriterFromIO(w io.Writer) *BinWriter {
	return &BinWriter{w: w}
}

// WriteU8 writes a byte.
func (w *BinWriter) WriteU8(v uint8) {
	w.writeBytes([]byte{v})
}

// WriteB writes a bool as a single byte.
func (w *BinWriter) WriteB(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

// WriteU16LE writes a uint16 in little-endian form.
func (w *BinWriter) WriteU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.writeBytes(b[:])
}

// WriteU32LE writes a uint32 in little-endian form.
func (w *BinWriter) WriteU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.writeBytes(b[:])
}

// WriteU64LE writes a uint64 in little-endian form.
func (w *BinWriter) WriteU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.writeBytes(b[:])
}

// WriteVarUint writes v as a Neo-encoded variable-length integer.
func (w *BinWriter) WriteVarUint(v uint64) {
	switch {
	case v < 0xfd:
		w.WriteU8(uint8(v))
	case v <= 0xffff:
		w.WriteU8(0xfd)
		w.WriteU16LE(uint16(v))
	case v <= 0xffffffff:
		w.WriteU8(0xfe)
		w.WriteU32LE(uint32(v))
	default:
		w.WriteU8(0xff)
		w.WriteU64LE(v)
	}
}

// WriteVarBytes writes a varint-length-prefixed byte slice.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.writeBytes(b)
}

// WriteBytes writes raw bytes with no length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	w.writeBytes(b)
}

func (w *BinWriter) writeBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(b)
}

// BinReader is the reading counterpart of BinWriter.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReaderFromBuf creates a BinReader over an in-memory byte slice.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return &BinReader{r: bytes.NewReader(b)}
}

// NewBinReaderFromIO creates a BinReader from a generic io.Reader.
func NewBinReaderFromIO(r io.Reader) *BinReader {
	return &BinReader{r: r}
}

// ReadU8 reads a byte.
func (r *BinReader) ReadU8() uint8 {
	var b [1]byte
	r.readBytes(b[:])
	return b[0]
}

// ReadB reads a bool encoded as a single byte.
func (r *BinReader) ReadB() bool {
	return r.ReadU8() != 0
}

// ReadU16LE reads a little-endian uint16.
func (r *BinReader) ReadU16LE() uint16 {
	var b [2]byte
	r.readBytes(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	var b [4]byte
	r.readBytes(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() uint64 {
	var b [8]byte
	r.readBytes(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// ReadVarUint reads a Neo-encoded variable-length integer.
func (r *BinReader) ReadVarUint() uint64 {
	b := r.ReadU8()
	switch b {
	case 0xfd:
		return uint64(r.ReadU16LE())
	case 0xfe:
		return uint64(r.ReadU32LE())
	case 0xff:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a varint-length-prefixed byte slice, rejecting
// lengths above max (if max > 0).
func (r *BinReader) ReadVarBytes(max ...int) []byte {
	n := r.ReadVarUint()
	if len(max) > 0 && max[0] > 0 && n > uint64(max[0]) {
		if r.Err == nil {
			r.Err = ErrVarArraySize
		}
		return nil
	}
	b := make([]byte, n)
	r.readBytes(b)
	return b
}

// ReadBytes reads exactly len(b) raw bytes into b.
func (r *BinReader) ReadBytes(b []byte) {
	r.readBytes(b)
}

func (r *BinReader) readBytes(b []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, b)
}

// BufBinWriter is a BinWriter backed by an in-memory buffer, useful for
// building scripts and serialized payloads before hashing them.
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a new BufBinWriter.
func NewBufBinWriter() *BufBinWriter {
	buf := new(bytes.Buffer)
	return &BufBinWriter{BinWriter: NewBinWriterFromIO(buf), buf: buf}
}

// Bytes returns the accumulated bytes.
func (w *BufBinWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *BufBinWriter) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer and any error, allowing reuse.
func (w *BufBinWriter) Reset() {
	w.buf.Reset()
	w.Err = nil
}

// Serializable is implemented by types with a canonical binary encoding.
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}

// ToByteArray serializes s into a fresh byte slice.
func ToByteArray(s Serializable) []byte {
	w := NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// FromByteArray deserializes s from b.
func FromByteArray(s Serializable, b []byte) error {
	r := NewBinReaderFromBuf(b)
	s.DecodeBinary(r)
	return r.Err
}
