// Package serial connects to a USB serial radio bridge.
//
// The bridge forwards every length-prefixed packet written to it as one
// radio payload, so messages are fragmented to the radio payload size.
package serial

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/phoenix.go/pkg/link"
	"github.com/robotalks/phoenix.go/pkg/link/stream"
)

// DefaultBaudRate is the baud rate of the radio bridge.
const DefaultBaudRate = 57600

// Config specifies the serial port.
type Config struct {
	Port     string
	BaudRate int
}

// ConfigFromURL parses serial:///dev/ttyUSB0?baud=57600.
func ConfigFromURL(u *url.URL) (Config, error) {
	conf := Config{Port: u.Path, BaudRate: DefaultBaudRate}
	if conf.Port == "" {
		conf.Port = u.Opaque
	}
	if conf.Port == "" {
		return conf, fmt.Errorf("serial: missing port in %q", u.String())
	}
	if baud := u.Query().Get("baud"); baud != "" {
		n, err := strconv.Atoi(baud)
		if err != nil || n <= 0 {
			return conf, fmt.Errorf("serial: invalid baud rate %q", baud)
		}
		conf.BaudRate = n
	}
	return conf, nil
}

// Mode returns the port settings: 8 data bits, no parity, one stop bit.
func (c Config) Mode() *serial.Mode {
	baud := c.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the port and returns a fragmenting Pipe over it.
// The Pipe must be run, e.g. by adding it to the loop.
func Open(conf Config) (*link.Pipe, error) {
	port, err := serial.Open(conf.Port, conf.Mode())
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", conf.Port, err)
	}
	glog.Infof("serial: opened %s at %d baud", conf.Port, conf.Mode().BaudRate)
	return link.NewPipe(stream.New(port)).WithFragmentation(), nil
}

// Ports lists the serial ports available on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
