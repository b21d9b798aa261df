// Package sensors defines the interfaces of the flight controller's
// sensors and provides host implementations for software in the loop runs.
package sensors

import (
	"sync"
	"time"

	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

// Orientation is the attitude of the aircraft.
type Orientation struct {
	Roll  Angle
	Pitch Angle
	Yaw   Angle
}

// OrientationReader reads the attitude, e.g. from an IMU.
type OrientationReader interface {
	ReadOrientation() (Orientation, error)
}

// PositionSource provides a geodetic position.
type PositionSource interface {
	Position() (remoteid.Position, error)
}

// VelocitySource provides the aircraft velocity.
type VelocitySource interface {
	Velocity() (remoteid.Velocity, error)
}

// StatusSource provides the overall status. remoteid.Subsystems
// implements it.
type StatusSource interface {
	Status() remoteid.Status
}

// Clock provides the current UTC time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the system real time clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock is a Clock advanced explicitly. It's safe for concurrent use.
type ManualClock struct {
	lock sync.Mutex
	now  time.Time
}

// NewManualClock creates a ManualClock starting at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}

// StaticGPS reports a fixed position and velocity, e.g. for a control
// station which doesn't move.
type StaticGPS struct {
	Pos remoteid.Position
	Vel remoteid.Velocity
}

// Position implements PositionSource.
func (g *StaticGPS) Position() (remoteid.Position, error) {
	return g.Pos, nil
}

// Velocity implements VelocitySource.
func (g *StaticGPS) Velocity() (remoteid.Velocity, error) {
	return g.Vel, nil
}
