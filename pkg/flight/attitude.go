// Package flight implements the attitude control of the aircraft on the
// control loop: sensors are read, PID corrections computed and applied to
// the motors in each iteration.
package flight

import (
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/pid"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
	"github.com/robotalks/phoenix.go/pkg/sensors"
)

// Actuator applies roll and pitch corrections to the motors.
type Actuator interface {
	Apply(roll, pitch float64) error
}

// StatusSink receives subsystem status changes. remoteid.Subsystems
// implements it.
type StatusSink interface {
	SetStatus(remoteid.Subsystem, remoteid.Status)
}

// Attitude keeps roll and pitch at their setpoints, in degrees.
type Attitude struct {
	IMU      sensors.OrientationReader
	Actuator Actuator
	Status   StatusSink

	Roll  *pid.ControlVariable
	Pitch *pid.ControlVariable

	orientation sensors.Orientation
	valid       bool
	rollCorr    float64
	pitchCorr   float64
}

// NewAttitude creates an Attitude controller holding the aircraft level
// in roll and at pitch degrees.
func NewAttitude(imu sensors.OrientationReader, act Actuator, pitch float64) *Attitude {
	return &Attitude{
		IMU:      imu,
		Actuator: act,
		Roll:     pid.New(0, pid.DefaultTimestep),
		Pitch:    pid.New(pitch, pid.DefaultTimestep),
	}
}

// Name implements Named.
func (a *Attitude) Name() string {
	return "attitude"
}

// Orientation returns the last orientation read.
func (a *Attitude) Orientation() sensors.Orientation {
	return a.orientation
}

// Corrections returns the last roll and pitch corrections.
func (a *Attitude) Corrections() (roll, pitch float64) {
	return a.rollCorr, a.pitchCorr
}

// AddToLoop implements LoopAdder.
func (a *Attitude) AddToLoop(loop *fx.Loop) {
	micros := float64(loop.Timestep().Microseconds())
	a.Roll.Timestep, a.Pitch.Timestep = micros, micros
	loop.AddController(fx.PrLvSense, fx.ControlFunc(a.sense))
	loop.AddController(fx.PrLvControl, fx.ControlFunc(a.control))
	loop.AddController(fx.PrLvActuate, fx.ControlFunc(a.actuate))
}

func (a *Attitude) sense(fx.ControlContext) error {
	o, err := a.IMU.ReadOrientation()
	a.valid = err == nil
	if err != nil {
		a.setStatus(remoteid.Guidance, remoteid.StatusEmergency)
		return fmt.Errorf("read orientation: %w", err)
	}
	a.setStatus(remoteid.Guidance, remoteid.StatusOK)
	a.orientation = o
	return nil
}

func (a *Attitude) control(cc fx.ControlContext) error {
	if !a.valid {
		return nil
	}
	a.Roll.Step(a.orientation.Roll.Degrees())
	a.Pitch.Step(a.orientation.Pitch.Degrees())
	a.rollCorr, a.pitchCorr = a.Roll.Correction(), a.Pitch.Correction()
	if glog.V(4) && cc.Iteration()%1000 == 0 {
		glog.Infof("roll: %.2f correction: %.4f pitch: %.2f correction: %.4f",
			a.orientation.Roll.Degrees(), a.rollCorr, a.orientation.Pitch.Degrees(), a.pitchCorr)
	}
	return nil
}

func (a *Attitude) actuate(fx.ControlContext) error {
	if !a.valid {
		return nil
	}
	if err := a.Actuator.Apply(a.rollCorr, a.pitchCorr); err != nil {
		a.setStatus(remoteid.Propulsion, remoteid.StatusEmergency)
		return fmt.Errorf("actuate: %w", err)
	}
	a.setStatus(remoteid.Propulsion, remoteid.StatusOK)
	return nil
}

func (a *Attitude) setStatus(sub remoteid.Subsystem, status remoteid.Status) {
	if a.Status != nil {
		a.Status.SetStatus(sub, status)
	}
}
