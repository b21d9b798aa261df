// Package hamming implements the extended Hamming(16,11) SECDED block code
// protecting each unit of the Remote ID radio message.
//
// Codeword layout, by bit position 0..15 (position 0 is sent first):
//
//	0           overall parity over positions 1..15
//	1, 2, 4, 8  Hamming check bits; check p covers every position with bit p set
//	3, 5, 6, 7, 9, 10, 11, 12, 13, 14, 15
//	            the 11 data bits, first data bit at position 3
//
// Any single-bit error is corrected and any double-bit error is detected.
// Three or more errors exceed the code's guarantees: an odd number of
// errors always looks like a single-bit error and is silently
// mis-corrected, and some even patterns of four or more errors form
// another valid codeword and decode as Clean. Callers needing more must
// protect the payload with an additional check.
package hamming

import (
	"fmt"

	"github.com/robotalks/phoenix.go/pkg/bits"
)

const (
	// DataBits is the number of payload bits in a codeword.
	DataBits = 11
	// CodewordBits is the total number of bits in a codeword.
	CodewordBits = 16
	// DataMask masks the valid bits of Data.
	DataMask Data = 1<<DataBits - 1
)

// dataPositions maps data bit i (MSB first) to its codeword position.
var dataPositions = [DataBits]uint{3, 5, 6, 7, 9, 10, 11, 12, 13, 14, 15}

// Data holds 11 payload bits in its low bits. The most significant
// of them is the first bit of the group in stream order.
type Data uint16

// Codeword is a 16-bit extended Hamming codeword.
// Position p is stored at bit 15-p so the big-endian
// form transmits positions in ascending order.
type Codeword uint16

// Status classifies the outcome of decoding a codeword.
type Status int

// Decode statuses.
const (
	Clean Status = iota
	CorrectedSingleBit
	UncorrectableMultiBit
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Clean:
		return "clean"
	case CorrectedSingleBit:
		return "corrected"
	case UncorrectableMultiBit:
		return "uncorrectable"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of Decode.
type Result struct {
	Status Status
	// Position is the flipped bit position when Status is CorrectedSingleBit.
	Position int
}

// String implements fmt.Stringer.
func (r Result) String() string {
	if r.Status == CorrectedSingleBit {
		return fmt.Sprintf("corrected(%d)", r.Position)
	}
	return r.Status.String()
}

func mask(pos uint) Codeword {
	return 1 << (CodewordBits - 1 - pos)
}

// Bit returns the bit at position pos.
func (c Codeword) Bit(pos int) bool {
	return c&mask(uint(pos)) != 0
}

// Flip returns the codeword with the bit at position pos inverted.
func (c Codeword) Flip(pos int) Codeword {
	return c ^ mask(uint(pos))
}

// Data extracts the data bits without checking parity.
func (c Codeword) Data() Data {
	var d Data
	for _, pos := range dataPositions {
		d <<= 1
		if c&mask(pos) != 0 {
			d |= 1
		}
	}
	return d
}

// Bits returns the codeword as a 16-bit buffer in position order.
func (c Codeword) Bits() bits.Buffer {
	b := bits.New(CodewordBits)
	b.PushUint(uint64(c), CodewordBits)
	return b
}

// Bits returns the data as an 11-bit buffer.
func (d Data) Bits() bits.Buffer {
	b := bits.New(DataBits)
	b.PushUint(uint64(d&DataMask), DataBits)
	return b
}

// Encode builds the codeword carrying d. Bits of d above DataBits are ignored.
func Encode(d Data) Codeword {
	var c Codeword
	for i, pos := range dataPositions {
		if d&(1<<uint(DataBits-1-i)) != 0 {
			c |= mask(pos)
		}
	}
	// Setting the check bits to the syndrome of the data bits
	// leaves a zero syndrome.
	s := syndrome(c)
	for p := uint(1); p < CodewordBits; p <<= 1 {
		if s&p != 0 {
			c |= mask(p)
		}
	}
	if parity(c) {
		c |= mask(0)
	}
	return c
}

// EncodeBits encodes an 11-bit buffer.
func EncodeBits(b bits.Buffer) (Codeword, error) {
	if b.Len() != DataBits {
		return 0, fmt.Errorf("hamming: need %d data bits, got %d", DataBits, b.Len())
	}
	return Encode(Data(b.Uint(0, DataBits))), nil
}

// Decode checks c, corrects a single-bit error and returns the data bits.
// With UncorrectableMultiBit the returned data is unreliable.
func Decode(c Codeword) (Data, Result) {
	s := syndrome(c)
	if parity(c) {
		// Odd number of flipped bits: assume one, at the syndrome.
		// A zero syndrome points at the overall parity bit.
		c = c.Flip(int(s))
		return c.Data(), Result{Status: CorrectedSingleBit, Position: int(s)}
	}
	if s != 0 {
		return c.Data(), Result{Status: UncorrectableMultiBit}
	}
	return c.Data(), Result{Status: Clean}
}

// Valid reports whether c passes all parity checks.
func Valid(c Codeword) bool {
	return syndrome(c) == 0 && !parity(c)
}

// syndrome XORs the positions of all set bits in 1..15.
func syndrome(c Codeword) uint {
	var s uint
	for pos := uint(1); pos < CodewordBits; pos++ {
		if c&mask(pos) != 0 {
			s ^= pos
		}
	}
	return s
}

// parity reports whether c has an odd number of set bits.
func parity(c Codeword) bool {
	v := uint16(c)
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 != 0
}
