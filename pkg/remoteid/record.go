// Package remoteid defines the Remote ID telemetry record broadcast by the
// aircraft and its canonical bit layout.
package remoteid

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// SerialNumberSize is the size of the ASCII serial number in bytes.
const SerialNumberSize = 20

// MillisPerDay is the exclusive upper bound of Timestamp.Millis.
const MillisPerDay = 24 * 60 * 60 * 1000

var (
	// ErrSerialNumber indicates a serial number is not representable.
	ErrSerialNumber = errors.New("invalid serial number")
)

// SerialNumber is the ASCII serial number of the aircraft, NUL padded.
type SerialNumber [SerialNumberSize]byte

// NewSerialNumber creates a SerialNumber from an ASCII string.
func NewSerialNumber(s string) (SerialNumber, error) {
	var sn SerialNumber
	if len(s) > SerialNumberSize {
		return sn, fmt.Errorf("%w: %q longer than %d bytes", ErrSerialNumber, s, SerialNumberSize)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return sn, fmt.Errorf("%w: %q is not printable ASCII", ErrSerialNumber, s)
		}
	}
	copy(sn[:], s)
	return sn, nil
}

// MustSerialNumber is NewSerialNumber which panics on error.
func MustSerialNumber(s string) SerialNumber {
	sn, err := NewSerialNumber(s)
	if err != nil {
		panic(err)
	}
	return sn
}

// String returns the serial number without NUL padding.
func (s SerialNumber) String() string {
	return strings.TrimRight(string(s[:]), "\x00")
}

// Position is a geodetic position of the aircraft or its control station.
type Position struct {
	// Lat is the latitude in degrees, positive north.
	Lat float32
	// Long is the longitude in degrees, positive east.
	Long float32
	// Alt is the altitude above sea level in meters.
	Alt uint16
}

// Velocity of the aircraft in m/s.
type Velocity struct {
	// X is the easterly velocity.
	X float32
	// Y is the northerly velocity.
	Y float32
	// Z is the vertical velocity, positive upwards.
	Z float32
}

// Timestamp of a broadcast, UTC.
type Timestamp struct {
	Year  uint16
	Month uint8
	Day   uint8
	// Millis is milliseconds past midnight.
	Millis uint32
}

// TimestampFrom converts t to a Timestamp in UTC.
func TimestampFrom(t time.Time) Timestamp {
	t = t.UTC()
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Timestamp{
		Year:   uint16(y),
		Month:  uint8(m),
		Day:    uint8(d),
		Millis: uint32(t.Sub(midnight) / time.Millisecond),
	}
}

// Time converts the Timestamp back to time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Date(int(ts.Year), time.Month(ts.Month), int(ts.Day), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(ts.Millis) * time.Millisecond)
}

// Status is the overall status code of the aircraft.
type Status uint8

// Status codes.
const (
	StatusOK        Status = 0x00
	StatusEmergency Status = 0xff
)

// Valid reports whether s is a known status code.
func (s Status) Valid() bool {
	return s == StatusOK || s == StatusEmergency
}

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmergency:
		return "emergency"
	}
	return fmt.Sprintf("status(0x%02x)", uint8(s))
}

// Record is the Remote ID telemetry record.
type Record struct {
	SerialNumber SerialNumber
	ControlPos   Position
	AircraftPos  Position
	Velocity     Velocity
	Timestamp    Timestamp
	Status       Status
}

// Validate checks the ranges of a freshly built record.
func (r *Record) Validate() error {
	if err := validatePosition("control", r.ControlPos); err != nil {
		return err
	}
	if err := validatePosition("aircraft", r.AircraftPos); err != nil {
		return err
	}
	for _, v := range []float32{r.Velocity.X, r.Velocity.Y, r.Velocity.Z} {
		if !finite(v) {
			return fmt.Errorf("velocity %v is not finite", r.Velocity)
		}
	}
	ts := r.Timestamp
	if ts.Month < 1 || ts.Month > 12 || ts.Day < 1 || ts.Day > 31 || ts.Millis >= MillisPerDay {
		return fmt.Errorf("timestamp %+v out of range", ts)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status %v", r.Status)
	}
	return nil
}

func validatePosition(name string, p Position) error {
	if !finite(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%s latitude %v out of range", name, p.Lat)
	}
	if !finite(p.Long) || p.Long < -180 || p.Long > 180 {
		return fmt.Errorf("%s longitude %v out of range", name, p.Long)
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
