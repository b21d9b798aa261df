package sensors

import (
	"math"
	"sync"
	"time"

	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

// MetersPerDegree is the length of one degree of latitude.
const MetersPerDegree = 111320.0

// SimGPS dead-reckons the position from a start position and a constant
// velocity since the first read.
type SimGPS struct {
	Start remoteid.Position
	Vel   remoteid.Velocity
	Clock Clock

	lock      sync.Mutex
	startTime time.Time
}

// Position implements PositionSource.
func (g *SimGPS) Position() (remoteid.Position, error) {
	secs := g.elapsed().Seconds()
	pos := g.Start
	lat := float64(g.Start.Lat) + float64(g.Vel.Y)*secs/MetersPerDegree
	pos.Lat = float32(math.Max(-90, math.Min(90, lat)))
	if c := math.Cos(lat * math.Pi / 180); c > 1e-9 {
		long := float64(g.Start.Long) + float64(g.Vel.X)*secs/(MetersPerDegree*c)
		pos.Long = float32(AngleFromDegrees(long).Degrees())
	}
	alt := float64(g.Start.Alt) + float64(g.Vel.Z)*secs
	pos.Alt = uint16(math.Max(0, math.Min(math.MaxUint16, math.Round(alt))))
	return pos, nil
}

// Velocity implements VelocitySource.
func (g *SimGPS) Velocity() (remoteid.Velocity, error) {
	return g.Vel, nil
}

func (g *SimGPS) elapsed() time.Duration {
	clock := g.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.startTime.IsZero() {
		g.startTime = now
	}
	return now.Sub(g.startTime)
}

// DefaultResponse is the default attitude rate of SimIMU in degrees per
// second per unit of correction.
const DefaultResponse = 10.0

// SimIMU simulates the attitude of the aircraft as a first order response
// to the corrections applied to the motors plus a constant drift.
type SimIMU struct {
	Clock Clock
	// Response is the attitude rate in degrees per second per unit of
	// correction.
	Response float64
	// RollDrift and PitchDrift are disturbances in degrees per second.
	RollDrift  float64
	PitchDrift float64

	lock        sync.Mutex
	orientation Orientation
	roll, pitch float64
	last        time.Time
}

// NewSimIMU creates a SimIMU starting at the given orientation.
func NewSimIMU(clock Clock, initial Orientation) *SimIMU {
	return &SimIMU{Clock: clock, Response: DefaultResponse, orientation: initial}
}

// ReadOrientation implements OrientationReader.
func (s *SimIMU) ReadOrientation() (Orientation, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advance()
	return s.orientation, nil
}

// Apply applies the roll and pitch corrections until the next Apply.
func (s *SimIMU) Apply(roll, pitch float64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.advance()
	s.roll, s.pitch = roll, pitch
	return nil
}

func (s *SimIMU) advance() {
	clock := s.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	if s.last.IsZero() {
		s.last = now
		return
	}
	secs := now.Sub(s.last).Seconds()
	s.last = now
	if secs <= 0 {
		return
	}
	s.orientation.Roll = s.orientation.Roll.AddDegrees((s.Response*s.roll + s.RollDrift) * secs)
	s.orientation.Pitch = s.orientation.Pitch.AddDegrees((s.Response*s.pitch + s.PitchDrift) * secs)
}
