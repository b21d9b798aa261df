// Package link defines how framed Remote ID messages reach the radio.
//
// An Adapter carries whole messages. Transports which move discrete
// packets implement PacketReadWriter and are turned into an Adapter by
// Pipe, which optionally fragments messages into radio sized payloads.
package link

import "errors"

var (
	// ErrClosed indicates the adapter is closed.
	ErrClosed = errors.New("link closed")
)

// Adapter sends and receives whole messages.
type Adapter interface {
	// Send transmits one message.
	Send(p []byte) error
	// Recv returns the next received message, or nil, nil when nothing
	// is pending. It never blocks.
	Recv() ([]byte, error)
}

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}
