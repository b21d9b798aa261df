package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/phoenix.go/pkg/env"
	"github.com/robotalks/phoenix.go/pkg/flight"
	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
	"github.com/robotalks/phoenix.go/pkg/sensors"
	"github.com/robotalks/phoenix.go/pkg/telemetry"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := env.Load()
	if err != nil {
		glog.Fatal(err)
	}
	if err := conf.Validate(); err != nil {
		glog.Fatal(err)
	}
	serial, err := conf.SerialNumber()
	if err != nil {
		glog.Fatal(err)
	}
	radioLink, err := conf.OpenLink(env.Aircraft)
	if err != nil {
		glog.Fatalf("open link %s: %v", conf.LinkURL, err)
	}

	var status remoteid.Subsystems
	clock := sensors.SystemClock{}
	imu := sensors.NewSimIMU(clock, sensors.Orientation{})
	gps := &sensors.SimGPS{
		Start: conf.Home.Position(),
		Vel:   conf.Velocity.Velocity(),
		Clock: clock,
	}

	attitude := flight.NewAttitude(imu, imu, conf.PitchSetpoint)
	attitude.Status = &status
	attitude.Roll.SetGains(conf.Kp, conf.Ki, conf.Kd)
	attitude.Pitch.SetGains(conf.Kp, conf.Ki, conf.Kd)

	reg := telemetry.NewRegistry()
	broadcaster := &telemetry.Broadcaster{
		Serial:         serial,
		ControlStation: &sensors.StaticGPS{Pos: conf.ControlStation.Position()},
		Aircraft:       gps,
		Velocity:       gps,
		Clock:          clock,
		Subsystems:     &status,
		Link:           radioLink,
		Metrics:        telemetry.NewMetrics(reg),
		Period:         conf.BroadcastPeriod,
	}

	loop := fx.NewLoop()
	loop.Interval = conf.Timestep
	loop.Add(attitude, broadcaster)
	if conf.MetricsAddr != "" {
		loop.AddRunnable(&telemetry.MetricsServer{Addr: conf.MetricsAddr, Gatherer: reg})
	}

	glog.Infof("phoenix %s broadcasting on %s every %v", serial, conf.LinkURL, conf.BroadcastPeriod)
	if err := fx.NewRunner().HandleSignals().Go(loop).Wait(); err != nil {
		glog.Fatal(err)
	}
}
