package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
)

// DefaultInboxSize is the default number of received messages a Pipe
// buffers before dropping the oldest.
const DefaultInboxSize = 8

// Pipe adapts a PacketReadWriter to an Adapter. Packets are read in the
// background by Run and queued for Recv.
type Pipe struct {
	ReadWriter PacketReadWriter
	// Fragment splits each message into radio sized fragments.
	Fragment bool

	fragmenter  Fragmenter
	reassembler Reassembler

	sendLock sync.Mutex

	lock   sync.Mutex
	inbox  [][]byte
	size   int
	closed bool
	err    error
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw, size: DefaultInboxSize}
}

// WithFragmentation enables fragmentation.
func (p *Pipe) WithFragmentation() *Pipe {
	p.Fragment = true
	return p
}

// Send implements Adapter.
func (p *Pipe) Send(msg []byte) error {
	if p.isClosed() {
		return ErrClosed
	}
	pkts := [][]byte{msg}
	if p.Fragment {
		frags, err := p.fragmenter.Split(msg)
		if err != nil {
			return err
		}
		pkts = frags
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	for _, pkt := range pkts {
		if err := p.ReadWriter.WritePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

// Recv implements Adapter. Once the Pipe is closed and drained every
// error satisfies errors.Is(err, ErrClosed).
func (p *Pipe) Recv() ([]byte, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.inbox) > 0 {
		msg := p.inbox[0]
		p.inbox[0] = nil
		p.inbox = p.inbox[1:]
		return msg, nil
	}
	if p.closed {
		if p.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClosed, p.err)
		}
		return nil, ErrClosed
	}
	return nil, nil
}

// Run implements Runnable.
func (p *Pipe) Run(ctx context.Context) error {
	err := fx.RunWithContextCloser(ctx, closerFunc(p.closeReadWriter), func() error {
		for {
			pkt, err := p.ReadWriter.ReadPacket()
			if err != nil {
				return err
			}
			if p.Fragment {
				if pkt, err = p.reassembler.Add(pkt); err != nil {
					glog.Warningf("link: %v", err)
					continue
				}
				if pkt == nil {
					continue
				}
			}
			p.enqueue(pkt)
		}
	})
	p.lock.Lock()
	if !p.closed && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		p.err = err
	}
	p.closed = true
	p.lock.Unlock()
	return err
}

// Close implements Closer.
func (p *Pipe) Close() error {
	p.lock.Lock()
	p.closed = true
	p.lock.Unlock()
	return p.closeReadWriter()
}

func (p *Pipe) closeReadWriter() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddRunnable(p)
}

func (p *Pipe) enqueue(msg []byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	size := p.size
	if size <= 0 {
		size = DefaultInboxSize
	}
	if len(p.inbox) >= size {
		glog.Warning("link: inbox full, dropping oldest message")
		p.inbox = p.inbox[1:]
	}
	p.inbox = append(p.inbox, msg)
	glog.V(2).Infof("link: received %d bytes", len(msg))
}

func (p *Pipe) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}
