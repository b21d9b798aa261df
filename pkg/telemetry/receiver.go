package telemetry

import (
	"errors"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/link"
	"github.com/robotalks/phoenix.go/pkg/radio"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
)

// DefaultMaxPerCycle bounds the messages a Receiver handles per cycle.
const DefaultMaxPerCycle = 16

// RecordHandler is called for every record received.
type RecordHandler func(remoteid.Record, radio.Report)

// Receiver polls the link and decodes received messages. Messages which
// can't be decoded are logged, counted and dropped. A link failure skips
// the rest of the cycle. A closed link stops the Receiver.
type Receiver struct {
	Link        link.Adapter
	Handler     RecordHandler
	Metrics     *Metrics
	MaxPerCycle int
	// OnClosed is called once when the link is found closed.
	OnClosed func()

	closed atomic.Bool
}

// Name implements Named.
func (r *Receiver) Name() string {
	return "receiver"
}

// AddToLoop implements LoopAdder.
func (r *Receiver) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvTelemetry, r)
	if runnable, ok := r.Link.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
}

// Control implements Controller.
func (r *Receiver) Control(fx.ControlContext) error {
	return r.Poll()
}

// Closed reports whether the link was found closed.
func (r *Receiver) Closed() bool {
	return r.closed.Load()
}

// Poll handles pending messages. It returns the link error, if any;
// decode failures are not errors. link.ErrClosed is returned only once,
// later calls do nothing.
func (r *Receiver) Poll() error {
	if r.closed.Load() {
		return nil
	}
	limit := r.MaxPerCycle
	if limit <= 0 {
		limit = DefaultMaxPerCycle
	}
	for i := 0; i < limit; i++ {
		msg, err := r.Link.Recv()
		if err != nil {
			r.count(func(m *Metrics) { m.RecvErrors.Inc() })
			if errors.Is(err, link.ErrClosed) && r.closed.CompareAndSwap(false, true) {
				glog.Warning("receive: link closed, receiver stopped")
				if r.OnClosed != nil {
					r.OnClosed()
				}
			}
			return err
		}
		if msg == nil {
			return nil
		}
		r.handle(msg)
	}
	return nil
}

func (r *Receiver) handle(msg []byte) {
	m, err := radio.MessageFromBytes(msg)
	if err != nil {
		glog.Warningf("receive: %v", err)
		r.count(func(m *Metrics) { m.RecvErrors.Inc() })
		return
	}
	rec, report, err := radio.Unframe(m)
	if corrected := report.Corrected(); corrected > 0 {
		glog.V(2).Infof("receive: corrected bits at %v", report.Positions())
		r.count(func(m *Metrics) { m.BlocksCorrected.Add(float64(corrected)) })
	}
	switch {
	case radio.IsChannelError(err):
		glog.Warningf("receive: %v", err)
		r.count(func(m *Metrics) { m.Unrecoverable.Inc() })
		return
	case radio.IsRecordError(err):
		glog.Warningf("receive: %v", err)
		r.count(func(m *Metrics) { m.InvalidRecords.Inc() })
		return
	case err != nil:
		glog.Warningf("receive: %v", err)
		return
	}
	r.count(func(m *Metrics) {
		m.MessagesReceived.Inc()
		m.Status.Set(float64(rec.Status))
	})
	glog.V(2).Infof("received %s status %v", rec.SerialNumber, rec.Status)
	if r.Handler != nil {
		r.Handler(rec, report)
	}
}

func (r *Receiver) count(fn func(*Metrics)) {
	if r.Metrics != nil {
		fn(r.Metrics)
	}
}
