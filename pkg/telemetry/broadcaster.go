// Package telemetry broadcasts the Remote ID record of the aircraft and
// receives records from the radio link.
package telemetry

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/link"
	"github.com/robotalks/phoenix.go/pkg/radio"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
	"github.com/robotalks/phoenix.go/pkg/sensors"
)

// DefaultPeriod is the default broadcast period.
const DefaultPeriod = time.Second

// Broadcaster builds the Remote ID record from its sources and sends the
// framed message over the link once every Period.
type Broadcaster struct {
	Serial         remoteid.SerialNumber
	ControlStation sensors.PositionSource
	Aircraft       sensors.PositionSource
	Velocity       sensors.VelocitySource
	Clock          sensors.Clock
	// Subsystems provides the status and receives Radio and RemoteID
	// subsystem failures.
	Subsystems *remoteid.Subsystems
	Link       link.Adapter
	Metrics    *Metrics
	Period     time.Duration
}

// Name implements Named.
func (b *Broadcaster) Name() string {
	return "broadcaster"
}

// AddToLoop implements LoopAdder.
func (b *Broadcaster) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvTelemetry, b)
	if runnable, ok := b.Link.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
}

// Control implements Controller. It broadcasts on the first iteration and
// then every Period worth of iterations.
func (b *Broadcaster) Control(cc fx.ControlContext) error {
	if cc.Iteration()%b.every(cc.Timestep()) != 0 {
		return nil
	}
	return b.Broadcast()
}

// Broadcast builds and sends one record.
func (b *Broadcaster) Broadcast() error {
	r, err := b.Record()
	if err != nil {
		b.setStatus(remoteid.RemoteID, remoteid.StatusEmergency)
		return err
	}
	if b.Subsystems != nil {
		b.Subsystems.SetStatus(remoteid.RemoteID, remoteid.StatusOK)
		r.Status = b.Subsystems.Status()
	}
	wire := radio.Frame(r).Bytes()
	if err := b.Link.Send(wire[:]); err != nil {
		b.setStatus(remoteid.Radio, remoteid.StatusEmergency)
		if b.Metrics != nil {
			b.Metrics.SendErrors.Inc()
		}
		return fmt.Errorf("send remote id: %w", err)
	}
	b.setStatus(remoteid.Radio, remoteid.StatusOK)
	if b.Metrics != nil {
		b.Metrics.MessagesSent.Inc()
		b.Metrics.Status.Set(float64(r.Status))
	}
	glog.V(2).Infof("broadcast %s status %v", r.SerialNumber, r.Status)
	return nil
}

// Record builds the current record.
func (b *Broadcaster) Record() (remoteid.Record, error) {
	r := remoteid.Record{SerialNumber: b.Serial, Status: remoteid.StatusOK}
	var err error
	if r.ControlPos, err = b.ControlStation.Position(); err != nil {
		return r, fmt.Errorf("control station position: %w", err)
	}
	if r.AircraftPos, err = b.Aircraft.Position(); err != nil {
		return r, fmt.Errorf("aircraft position: %w", err)
	}
	if r.Velocity, err = b.Velocity.Velocity(); err != nil {
		return r, fmt.Errorf("velocity: %w", err)
	}
	clock := b.Clock
	if clock == nil {
		clock = sensors.SystemClock{}
	}
	r.Timestamp = remoteid.TimestampFrom(clock.Now())
	if b.Subsystems != nil {
		r.Status = b.Subsystems.Status()
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	return r, nil
}

func (b *Broadcaster) every(timestep time.Duration) uint64 {
	period := b.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	if timestep <= 0 || period <= timestep {
		return 1
	}
	return uint64(period / timestep)
}

func (b *Broadcaster) setStatus(sub remoteid.Subsystem, status remoteid.Status) {
	if b.Subsystems != nil {
		b.Subsystems.SetStatus(sub, status)
	}
}
