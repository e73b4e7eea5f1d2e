package kimage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader provides little-endian random access over a raw image.
// It never closes the underlying source; the caller owns it.
type Reader struct {
	src  io.ReaderAt
	size uint64
	pos  uint64
}

// NewReader wraps an io.ReaderAt of known size.
func NewReader(src io.ReaderAt, size int64) *Reader {
	return &Reader{src: src, size: uint64(size)}
}

// NewBytesReader wraps an in-memory image.
func NewBytesReader(data []byte) *Reader {
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

// Size returns the total number of bytes available.
func (r *Reader) Size() uint64 {
	return r.size
}

// Bytes reads exactly n raw bytes at an absolute offset.
func (r *Reader) Bytes(off, n uint64) ([]byte, error) {
	if off+n < off || off+n > r.size {
		return nil, fmt.Errorf("read %#x bytes at %#x: %w", n, off, io.ErrUnexpectedEOF)
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, int64(off)); err != nil {
		return nil, fmt.Errorf("read %#x bytes at %#x: %w", n, off, err)
	}
	return buf, nil
}

// Uint32 reads an unsigned 32-bit little-endian value at an absolute offset.
func (r *Reader) Uint32(off uint64) (uint32, error) {
	b, err := r.Bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads an unsigned 64-bit little-endian value at an absolute offset.
func (r *Reader) Uint64(off uint64) (uint64, error) {
	b, err := r.Bytes(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ASCII reads n raw bytes at an absolute offset and returns them as a
// string. Embedded NUL bytes are preserved.
func (r *Reader) ASCII(off, n uint64) (string, error) {
	b, err := r.Bytes(off, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Seek positions the sequential cursor at an absolute offset.
func (r *Reader) Seek(off uint64) {
	r.pos = off
}

// Pos returns the current sequential cursor position.
func (r *Reader) Pos() uint64 {
	return r.pos
}

// NextUint64 reads an unsigned 64-bit little-endian value at the cursor
// and advances it.
func (r *Reader) NextUint64() (uint64, error) {
	v, err := r.Uint64(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += 8
	return v, nil
}
