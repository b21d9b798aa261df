// Package radio frames Remote ID records into Hamming protected radio
// messages and back.
package radio

import (
	"encoding/binary"
	"fmt"

	"github.com/robotalks/phoenix.go/pkg/hamming"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

const (
	// Blocks is the number of codewords in a Message.
	Blocks = (remoteid.RecordBits + hamming.DataBits - 1) / hamming.DataBits
	// PayloadBits is the number of data bits carried by a Message.
	PayloadBits = Blocks * hamming.DataBits
	// PaddingBits is the number of zero bits appended to the record.
	PaddingBits = PayloadBits - remoteid.RecordBits
	// MessageSize is the size of a Message on the wire in bytes.
	MessageSize = Blocks * 2
)

// Message is a framed record: codewords in transmission order.
type Message [Blocks]hamming.Codeword

// Bytes returns the wire form, each codeword big-endian.
func (m Message) Bytes() [MessageSize]byte {
	var b [MessageSize]byte
	for i, c := range m {
		binary.BigEndian.PutUint16(b[i*2:], uint16(c))
	}
	return b
}

// MessageFromBytes parses the wire form of a Message.
func MessageFromBytes(b []byte) (Message, error) {
	var m Message
	if len(b) != MessageSize {
		return m, fmt.Errorf("%w: got %d bytes", ErrMessageSize, len(b))
	}
	for i := range m {
		m[i] = hamming.Codeword(binary.BigEndian.Uint16(b[i*2:]))
	}
	return m, nil
}
