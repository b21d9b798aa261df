package remoteid

import (
	"fmt"
	"math"

	"github.com/robotalks/phoenix.go/pkg/bits"
)

// Field widths of the canonical layout.
const (
	SerialNumberBits = SerialNumberSize * 8
	PositionBits     = 32 + 32 + 16
	VelocityBits     = 3 * 32
	TimestampBits    = 16 + 8 + 8 + 32
	StatusBits       = 8

	// RecordBits is the width of a serialized Record.
	RecordBits = SerialNumberBits + 2*PositionBits + VelocityBits + TimestampBits + StatusBits
)

// MalformedRecordError indicates bits which don't form a valid Record.
type MalformedRecordError struct {
	Reason string
}

// Error implements error.
func (e *MalformedRecordError) Error() string {
	return "malformed record: " + e.Reason
}

// Serialize lays out r in canonical order, each field MSB first:
// serial number, control position, aircraft position, velocity,
// timestamp, status.
func Serialize(r Record) bits.Buffer {
	b := bits.New(RecordBits)
	// The layout is exactly RecordBits wide, pushes can't fail.
	for _, c := range r.SerialNumber {
		b.PushUint(uint64(c), 8)
	}
	pushPosition(&b, r.ControlPos)
	pushPosition(&b, r.AircraftPos)
	pushFloat(&b, r.Velocity.X)
	pushFloat(&b, r.Velocity.Y)
	pushFloat(&b, r.Velocity.Z)
	b.PushUint(uint64(r.Timestamp.Year), 16)
	b.PushUint(uint64(r.Timestamp.Month), 8)
	b.PushUint(uint64(r.Timestamp.Day), 8)
	b.PushUint(uint64(r.Timestamp.Millis), 32)
	b.PushUint(uint64(r.Status), StatusBits)
	return b
}

// Deserialize is the inverse of Serialize.
func Deserialize(b bits.Buffer) (Record, error) {
	var r Record
	if b.Len() != RecordBits {
		return r, &MalformedRecordError{Reason: fmt.Sprintf("got %d bits, want %d", b.Len(), RecordBits)}
	}
	rd := reader{buf: &b}
	for i := range r.SerialNumber {
		r.SerialNumber[i] = byte(rd.uint(8))
	}
	r.ControlPos = rd.position()
	r.AircraftPos = rd.position()
	r.Velocity.X = rd.float()
	r.Velocity.Y = rd.float()
	r.Velocity.Z = rd.float()
	r.Timestamp.Year = uint16(rd.uint(16))
	r.Timestamp.Month = uint8(rd.uint(8))
	r.Timestamp.Day = uint8(rd.uint(8))
	r.Timestamp.Millis = uint32(rd.uint(32))
	r.Status = Status(rd.uint(StatusBits))
	if !r.Status.Valid() {
		return r, &MalformedRecordError{Reason: fmt.Sprintf("unknown status 0x%02x", uint8(r.Status))}
	}
	return r, nil
}

func pushPosition(b *bits.Buffer, p Position) {
	pushFloat(b, p.Lat)
	pushFloat(b, p.Long)
	b.PushUint(uint64(p.Alt), 16)
}

func pushFloat(b *bits.Buffer, v float32) {
	b.PushUint(uint64(math.Float32bits(v)), 32)
}

type reader struct {
	buf    *bits.Buffer
	offset int
}

func (r *reader) uint(width int) uint64 {
	v := r.buf.Uint(r.offset, width)
	r.offset += width
	return v
}

func (r *reader) float() float32 {
	return math.Float32frombits(uint32(r.uint(32)))
}

func (r *reader) position() Position {
	return Position{Lat: r.float(), Long: r.float(), Alt: uint16(r.uint(16))}
}
