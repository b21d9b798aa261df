// Package loopback provides an in-memory link for software in the loop
// runs and tests: every sent message is received by the same adapter.
package loopback

import (
	"math/rand"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/phoenix.go/pkg/link"
)

// DefaultDepth is the default number of queued messages.
const DefaultDepth = 16

// NoiseFunc corrupts a message in place before it's queued.
type NoiseFunc func(msg []byte)

// Adapter is an in-memory link.Adapter backed by a bounded ring.
// When full, the oldest message is overwritten.
type Adapter struct {
	Noise NoiseFunc

	lock   sync.Mutex
	ring   [][]byte
	head   int
	count  int
	closed bool
}

// New creates an Adapter holding up to depth messages.
func New(depth int) *Adapter {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Adapter{ring: make([][]byte, depth)}
}

// Send implements link.Adapter.
func (a *Adapter) Send(p []byte) error {
	msg := append([]byte(nil), p...)
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.closed {
		return link.ErrClosed
	}
	if a.Noise != nil {
		a.Noise(msg)
	}
	if a.count == len(a.ring) {
		glog.V(2).Info("loopback: queue full, overwriting oldest message")
		a.head = (a.head + 1) % len(a.ring)
		a.count--
	}
	a.ring[(a.head+a.count)%len(a.ring)] = msg
	a.count++
	return nil
}

// Recv implements link.Adapter.
func (a *Adapter) Recv() ([]byte, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.count == 0 {
		if a.closed {
			return nil, link.ErrClosed
		}
		return nil, nil
	}
	msg := a.ring[a.head]
	a.ring[a.head] = nil
	a.head = (a.head + 1) % len(a.ring)
	a.count--
	return msg, nil
}

// Len returns the number of queued messages.
func (a *Adapter) Len() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.count
}

// Close implements io.Closer. Queued messages can still be received.
func (a *Adapter) Close() error {
	a.lock.Lock()
	a.closed = true
	a.lock.Unlock()
	return nil
}

// FlipBits returns a NoiseFunc flipping the given bit offsets, MSB first
// within each byte. Offsets beyond the message are ignored.
func FlipBits(offsets ...int) NoiseFunc {
	return func(msg []byte) {
		for _, off := range offsets {
			if off >= 0 && off/8 < len(msg) {
				msg[off/8] ^= 0x80 >> uint(off%8)
			}
		}
	}
}

// RandomNoise returns a NoiseFunc flipping each bit with probability
// rate. rnd must not be shared with other goroutines.
func RandomNoise(rnd *rand.Rand, rate float64) NoiseFunc {
	return func(msg []byte) {
		for i := range msg {
			for b := 0; b < 8; b++ {
				if rnd.Float64() < rate {
					msg[i] ^= 1 << uint(b)
				}
			}
		}
	}
}
