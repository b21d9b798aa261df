package env

import (
	"fmt"
	"net/url"

	"github.com/robotalks/phoenix.go/pkg/link"
	"github.com/robotalks/phoenix.go/pkg/link/loopback"
	"github.com/robotalks/phoenix.go/pkg/link/mqtt"
	"github.com/robotalks/phoenix.go/pkg/link/serial"
	"github.com/robotalks/phoenix.go/pkg/link/websocket"
)

// Role selects which side of the link is opened.
type Role int

// Roles
const (
	Aircraft Role = iota
	Ground
)

// OpenLink opens the link configured by LinkURL. The returned adapter
// must be run if it's a Runnable.
func (c *Config) OpenLink(role Role) (link.Adapter, error) {
	u, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	switch u.Scheme {
	case "loopback":
		return loopback.New(0), nil
	case "serial":
		conf, err := serial.ConfigFromURL(u)
		if err != nil {
			return nil, err
		}
		return serial.Open(conf)
	case "mqtt", "mqtts":
		q, err := mqtt.NewQueueFromURL(c.LinkURL)
		if err != nil {
			return nil, err
		}
		a := mqtt.NewAdapter(q)
		if role == Ground {
			return a.ForGround(), nil
		}
		sn, err := c.SerialNumber()
		if err != nil {
			return nil, err
		}
		return a.ForAircraft(sn.String()), nil
	case "ws", "wss":
		return websocket.Dial(c.LinkURL)
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}
