// Package env provides the configuration shared by the phoenix binaries.
package env

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/pid"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
	"github.com/robotalks/phoenix.go/pkg/telemetry"
)

// Site is a fixed geodetic position.
type Site struct {
	Lat  float64 `yaml:"lat"`
	Long float64 `yaml:"long"`
	Alt  uint16  `yaml:"alt"`
}

// Position converts s to a remoteid.Position.
func (s Site) Position() remoteid.Position {
	return remoteid.Position{Lat: float32(s.Lat), Long: float32(s.Long), Alt: s.Alt}
}

// Vector is a velocity in m/s, X east, Y north, Z up.
type Vector struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Velocity converts v to a remoteid.Velocity.
func (v Vector) Velocity() remoteid.Velocity {
	return remoteid.Velocity{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// Config provides common options of the firmware and the ground tools.
type Config struct {
	// ConfigFile is an optional YAML file loaded by Load.
	ConfigFile string `yaml:"-"`

	// LinkURL selects the radio link, e.g.
	// loopback:, serial:///dev/ttyUSB0?baud=57600,
	// mqtt://host:1883/phoenix/, ws://host:8080/rid.
	LinkURL string `yaml:"link"`
	// Serial is the serial number broadcast. Derived from the machine ID
	// when empty.
	Serial string `yaml:"serial"`
	// MetricsAddr is the listen address of the metrics endpoint, empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	Timestep        time.Duration `yaml:"timestep"`
	BroadcastPeriod time.Duration `yaml:"broadcast_period"`
	// PitchSetpoint is the pitch (degrees) held by the attitude controller.
	PitchSetpoint float64 `yaml:"pitch_setpoint"`
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	Kd            float64 `yaml:"kd"`

	// ControlStation is the position of the control station.
	ControlStation Site `yaml:"control_station"`
	// Home is the take off position of the simulated aircraft.
	Home Site `yaml:"home"`
	// Velocity is the constant velocity of the simulated aircraft.
	Velocity Vector `yaml:"velocity"`
}

var defaultConfig = Config{
	LinkURL:         "loopback:",
	MetricsAddr:     ":9464",
	Timestep:        fx.DefaultTimestep,
	BroadcastPeriod: telemetry.DefaultPeriod,
	PitchSetpoint:   10,
	Kp:              pid.DefaultKp,
	Ki:              pid.DefaultKi,
	Kd:              pid.DefaultKd,
	ControlStation:  Site{Lat: 38.8977, Long: -77.0365, Alt: 100},
	Home:            Site{Lat: 38.8977, Long: -77.0365, Alt: 100},
}

func init() {
	defaultConfig.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if val, ok := lookup("PHOENIX_CONFIG"); ok && val != "" {
		c.ConfigFile = val
	}
	if val, ok := lookup("PHOENIX_LINK_URL"); ok && val != "" {
		c.LinkURL = val
	}
	if val, ok := lookup("PHOENIX_SERIAL"); ok && val != "" {
		c.Serial = val
	}
	if val, ok := lookup("PHOENIX_METRICS_ADDR"); ok {
		c.MetricsAddr = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.RegisterFlags(flag.CommandLine)
}

// RegisterFlags binds the options to fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML configuration file.")
	fs.StringVar(&c.LinkURL, "link", c.LinkURL, "Radio link URL.")
	fs.StringVar(&c.Serial, "serial", c.Serial, "Serial number, derived from the machine ID if empty.")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Metrics listen address, empty to disable.")
	fs.DurationVar(&c.Timestep, "timestep", c.Timestep, "Control loop timestep.")
	fs.DurationVar(&c.BroadcastPeriod, "broadcast-period", c.BroadcastPeriod, "Remote ID broadcast period.")
	fs.Float64Var(&c.PitchSetpoint, "pitch", c.PitchSetpoint, "Pitch setpoint (degrees).")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load creates a Config from the default configuration and the
// configuration file, if any. Flags set on the command line take
// precedence over the file.
func Load() (*Config, error) {
	return defaultConfig.Load(flag.CommandLine)
}

// Load resolves c against its configuration file. fs is the flag set c
// was registered with.
func (c *Config) Load(fs *flag.FlagSet) (*Config, error) {
	conf := *c
	if conf.ConfigFile == "" {
		return &conf, nil
	}
	if err := conf.LoadFile(conf.ConfigFile); err != nil {
		return nil, err
	}
	override := flag.NewFlagSet("override", flag.ContinueOnError)
	conf.RegisterFlags(override)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err == nil && override.Lookup(f.Name) != nil {
			err = override.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the options.
func (c *Config) Validate() error {
	if c.LinkURL == "" {
		return fmt.Errorf("link URL is required")
	}
	if c.Timestep <= 0 {
		return fmt.Errorf("timestep must be positive: %v", c.Timestep)
	}
	if c.BroadcastPeriod < c.Timestep {
		return fmt.Errorf("broadcast period %v shorter than timestep %v", c.BroadcastPeriod, c.Timestep)
	}
	if c.Serial != "" {
		if _, err := remoteid.NewSerialNumber(c.Serial); err != nil {
			return err
		}
	}
	return nil
}

// SerialNumber returns the configured serial number, or the one derived
// from the machine ID.
func (c *Config) SerialNumber() (remoteid.SerialNumber, error) {
	s := c.Serial
	if s == "" {
		var err error
		if s, err = DefaultSerial(); err != nil {
			return remoteid.SerialNumber{}, err
		}
	}
	return remoteid.NewSerialNumber(s)
}
