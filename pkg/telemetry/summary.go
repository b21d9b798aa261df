package telemetry

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/robotalks/phoenix.go/pkg/radio"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

// Summary is a decoded record as republished by ground stations,
// CBOR encoded with integer keys.
type Summary struct {
	Serial      string  `cbor:"1,keyasint"`
	ControlLat  float32 `cbor:"2,keyasint"`
	ControlLong float32 `cbor:"3,keyasint"`
	ControlAlt  uint16  `cbor:"4,keyasint"`
	Lat         float32 `cbor:"5,keyasint"`
	Long        float32 `cbor:"6,keyasint"`
	Alt         uint16  `cbor:"7,keyasint"`
	VelX        float32 `cbor:"8,keyasint"`
	VelY        float32 `cbor:"9,keyasint"`
	VelZ        float32 `cbor:"10,keyasint"`
	// TimeMillis is the broadcast timestamp in Unix milliseconds.
	TimeMillis int64 `cbor:"11,keyasint"`
	Status     uint8 `cbor:"12,keyasint"`
	// Corrected is the number of codewords corrected on reception.
	Corrected int `cbor:"13,keyasint,omitempty"`
}

// NewSummary creates a Summary from a received record.
func NewSummary(r remoteid.Record, report radio.Report) Summary {
	return Summary{
		Serial:      r.SerialNumber.String(),
		ControlLat:  r.ControlPos.Lat,
		ControlLong: r.ControlPos.Long,
		ControlAlt:  r.ControlPos.Alt,
		Lat:         r.AircraftPos.Lat,
		Long:        r.AircraftPos.Long,
		Alt:         r.AircraftPos.Alt,
		VelX:        r.Velocity.X,
		VelY:        r.Velocity.Y,
		VelZ:        r.Velocity.Z,
		TimeMillis:  r.Timestamp.Time().UnixMilli(),
		Status:      uint8(r.Status),
		Corrected:   report.Corrected(),
	}
}

// Time returns the broadcast timestamp.
func (s Summary) Time() time.Time {
	return time.UnixMilli(s.TimeMillis).UTC()
}

// Emergency reports whether the aircraft declared an emergency.
func (s Summary) Emergency() bool {
	return remoteid.Status(s.Status) == remoteid.StatusEmergency
}

// String implements fmt.Stringer.
func (s Summary) String() string {
	return fmt.Sprintf("%s %s lat=%.5f long=%.5f alt=%d vel=(%.1f,%.1f,%.1f) status=%v",
		s.Serial, s.Time().Format(time.RFC3339Nano), s.Lat, s.Long, s.Alt,
		s.VelX, s.VelY, s.VelZ, remoteid.Status(s.Status))
}

// EncodeSummary encodes s in CBOR.
func EncodeSummary(s Summary) ([]byte, error) {
	return cbor.Marshal(s)
}

// DecodeSummary decodes a CBOR encoded Summary.
func DecodeSummary(data []byte) (Summary, error) {
	var s Summary
	if err := cbor.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to decode summary: %w", err)
	}
	return s, nil
}
