// Package bits provides a fixed-capacity bit buffer.
//
// A Buffer never allocates: its cells live in a fixed array sized for
// MaxCapacity bits, and the capacity chosen at construction bounds every
// append. Bits are ordered most-significant first, both when decomposing
// bytes and when pushing multi-bit values.
package bits

import (
	"errors"
	"strings"
)

// MaxCapacity is the largest capacity a Buffer can be created with.
const MaxCapacity = 512

const wordBits = 64

var (
	// ErrCapacityExceeded indicates an append would grow a buffer past its capacity.
	ErrCapacityExceeded = errors.New("bit buffer capacity exceeded")
)

// Buffer is an ordered sequence of bits with a fixed capacity.
// Cells at or beyond Len are always zero, so two buffers holding
// the same bits with the same capacity compare equal with ==.
type Buffer struct {
	cells [MaxCapacity / wordBits]uint64
	n     int
	size  int
}

// New creates an empty Buffer holding up to capacity bits.
// It panics if capacity is negative or larger than MaxCapacity.
func New(capacity int) Buffer {
	if capacity < 0 || capacity > MaxCapacity {
		panic("bits: invalid capacity")
	}
	return Buffer{size: capacity}
}

// FromBytes creates a Buffer from bytes, MSB first.
func FromBytes(capacity int, data []byte) (Buffer, error) {
	b := New(capacity)
	if len(data)*8 > capacity {
		return b, ErrCapacityExceeded
	}
	for _, v := range data {
		b.pushUnchecked(uint64(v), 8)
	}
	return b, nil
}

// Len returns the number of bits in the buffer.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int {
	return b.size
}

// Full reports whether no more bits can be pushed.
func (b *Buffer) Full() bool {
	return b.n >= b.size
}

// Push appends one bit.
func (b *Buffer) Push(bit bool) error {
	if b.n >= b.size {
		return ErrCapacityExceeded
	}
	if bit {
		b.cells[b.n/wordBits] |= 1 << uint(wordBits-1-b.n%wordBits)
	}
	b.n++
	return nil
}

// PushUint appends the low width bits of v, MSB first.
// Nothing is appended if the bits don't fit.
func (b *Buffer) PushUint(v uint64, width int) error {
	if width < 0 || width > wordBits {
		panic("bits: invalid width")
	}
	if b.n+width > b.size {
		return ErrCapacityExceeded
	}
	b.pushUnchecked(v, width)
	return nil
}

// Append appends all bits of other.
// Nothing is appended if the bits don't fit.
func (b *Buffer) Append(other Buffer) error {
	if b.n+other.n > b.size {
		return ErrCapacityExceeded
	}
	for i := 0; i < other.n; i++ {
		b.Push(other.Bit(i))
	}
	return nil
}

// Bit returns the bit at index i. Indices outside [0, Len) read as false.
func (b *Buffer) Bit(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.cells[i/wordBits]&(1<<uint(wordBits-1-i%wordBits)) != 0
}

// Uint reads width bits starting at offset as an unsigned value, MSB first.
func (b *Buffer) Uint(offset, width int) uint64 {
	if width < 0 || width > wordBits {
		panic("bits: invalid width")
	}
	var v uint64
	for i := 0; i < width; i++ {
		v <<= 1
		if b.Bit(offset + i) {
			v |= 1
		}
	}
	return v
}

// Slice copies up to n bits starting at offset into a new Buffer of capacity n.
func (b *Buffer) Slice(offset, n int) Buffer {
	s := New(n)
	for i := 0; i < n && offset+i < b.n; i++ {
		s.Push(b.Bit(offset + i))
	}
	return s
}

// Bytes packs the bits MSB first, padding the last byte with zeros.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, (b.n+7)/8)
	for i := range out {
		out[i] = byte(b.Uint(i*8, 8))
	}
	return out
}

// String renders the bits as a string of 0s and 1s.
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(b.n)
	for i := 0; i < b.n; i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func (b *Buffer) pushUnchecked(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		b.Push(v&(1<<uint(i)) != 0)
	}
}
