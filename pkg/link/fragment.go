package link

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

const (
	// MaxPayload is the largest radio payload in bytes (nRF24L01).
	MaxPayload = 32
	// FragmentHeaderSize is the size of the fragment header.
	FragmentHeaderSize = 2
	// FragmentDataSize is the message bytes carried per fragment.
	FragmentDataSize = MaxPayload - FragmentHeaderSize
	// MaxFragments is the most fragments a message can be split into.
	MaxFragments = 15
	// MaxMessageSize is the largest message which can be fragmented.
	MaxMessageSize = MaxFragments * FragmentDataSize

	// DefaultReassemblyTimeout is how long a partial message is kept.
	// It must stay well below 256 broadcast periods so a wrapped
	// sequence number never completes a stale message.
	DefaultReassemblyTimeout = 250 * time.Millisecond
)

var (
	// ErrMessageTooLarge indicates a message doesn't fit in MaxFragments.
	ErrMessageTooLarge = errors.New("message too large")
	// ErrBadFragment indicates a malformed fragment.
	ErrBadFragment = errors.New("bad fragment")
)

// Fragmenter splits messages into fragments:
//
//	[seq, index<<4 | count, data...]
//
// where seq identifies the message, index is the 0-based fragment index
// and count the number of fragments.
type Fragmenter struct {
	lock sync.Mutex
	seq  byte
}

// Split splits msg into fragments of at most MaxPayload bytes.
func (f *Fragmenter) Split(msg []byte) ([][]byte, error) {
	if len(msg) == 0 || len(msg) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(msg))
	}
	f.lock.Lock()
	seq := f.seq
	f.seq++
	f.lock.Unlock()

	count := (len(msg) + FragmentDataSize - 1) / FragmentDataSize
	frags := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		data := msg[i*FragmentDataSize:]
		if len(data) > FragmentDataSize {
			data = data[:FragmentDataSize]
		}
		frag := make([]byte, FragmentHeaderSize+len(data))
		frag[0], frag[1] = seq, byte(i<<4|count)
		copy(frag[FragmentHeaderSize:], data)
		frags = append(frags, frag)
	}
	return frags, nil
}

// Reassembler collects fragments back into messages. Only one message is
// assembled at a time: a fragment of another sequence drops the partial
// message, and so does a partial older than Timeout.
type Reassembler struct {
	// Timeout defaults to DefaultReassemblyTimeout.
	Timeout time.Duration

	started time.Time
	seq     byte
	count   int
	pending bool
	parts   [MaxFragments][]byte
	got     int
	dropped int
}

// Add adds a fragment and returns the message once complete,
// otherwise nil.
func (r *Reassembler) Add(frag []byte) ([]byte, error) {
	return r.AddAt(frag, time.Now())
}

// AddAt is Add with the fragment arriving at now.
func (r *Reassembler) AddAt(frag []byte, now time.Time) ([]byte, error) {
	if len(frag) <= FragmentHeaderSize || len(frag) > MaxPayload {
		return nil, fmt.Errorf("%w: size %d", ErrBadFragment, len(frag))
	}
	seq, index, count := frag[0], int(frag[1]>>4), int(frag[1]&0x0f)
	if count == 0 || index >= count {
		return nil, fmt.Errorf("%w: index %d of %d", ErrBadFragment, index, count)
	}
	if r.pending && (seq != r.seq || count != r.count || now.Sub(r.started) > r.timeout()) {
		glog.V(2).Infof("drop partial message seq %d: %d/%d fragments", r.seq, r.got, r.count)
		r.dropped++
		r.reset()
	}
	if !r.pending {
		r.seq, r.count, r.pending = seq, count, true
		r.started = now
	}
	if r.parts[index] != nil {
		// duplicate.
		return nil, nil
	}
	r.parts[index] = append([]byte(nil), frag[FragmentHeaderSize:]...)
	r.got++
	if r.got < r.count {
		return nil, nil
	}
	var msg []byte
	for i := 0; i < r.count; i++ {
		msg = append(msg, r.parts[i]...)
	}
	r.reset()
	return msg, nil
}

// Dropped returns the number of partial messages dropped.
func (r *Reassembler) Dropped() int {
	return r.dropped
}

func (r *Reassembler) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultReassemblyTimeout
}

func (r *Reassembler) reset() {
	for i := range r.parts {
		r.parts[i] = nil
	}
	r.got, r.pending = 0, false
}
