package mqtt

import (
	"context"
	"errors"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/phoenix.go/pkg/link"
)

// TopicSuffix is appended to the serial number to form the topic of
// an aircraft's messages.
const TopicSuffix = "/rid"

// AnyAircraft is the pattern matching messages from all aircraft.
const AnyAircraft = "+" + TopicSuffix

// ErrNotConnected indicates the broker connection is down.
var ErrNotConnected = errors.New("mqtt: not connected")

// Topic returns the topic carrying messages from serial.
func Topic(serial string) string {
	return serial + TopicSuffix
}

// SerialFromTopic extracts the serial number from a message topic.
func SerialFromTopic(topic string) (string, bool) {
	if !strings.HasSuffix(topic, TopicSuffix) {
		return "", false
	}
	serial := strings.TrimSuffix(topic, TopicSuffix)
	if serial == "" || strings.Contains(serial, "/") {
		return "", false
	}
	return serial, true
}

// Adapter implements link.Adapter over a Queue. Messages are published
// to PubTopic and received from SubTopic. Either can be empty.
type Adapter struct {
	Queue    *Queue
	PubTopic string
	SubTopic string

	inbox chan []byte
}

// NewAdapter creates an Adapter.
func NewAdapter(q *Queue) *Adapter {
	return &Adapter{Queue: q, inbox: make(chan []byte, link.DefaultInboxSize)}
}

// WithTopics specifies the topics.
func (a *Adapter) WithTopics(sub, pub string) *Adapter {
	a.SubTopic, a.PubTopic = sub, pub
	return a
}

// ForAircraft publishes messages of serial.
func (a *Adapter) ForAircraft(serial string) *Adapter {
	return a.WithTopics("", Topic(serial))
}

// ForGround receives messages from all aircraft.
func (a *Adapter) ForGround() *Adapter {
	return a.WithTopics(AnyAircraft, "")
}

// Send implements link.Adapter. Publishing is asynchronous, delivery
// errors are logged.
func (a *Adapter) Send(p []byte) error {
	if a.PubTopic == "" {
		return errors.New("mqtt: no publish topic")
	}
	if !a.Queue.Client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := a.Queue.Pub(a.PubTopic, append([]byte(nil), p...))
	go func() {
		if token.Wait(); token.Error() != nil {
			glog.Warningf("mqtt: publish %s error: %v", a.PubTopic, token.Error())
		}
	}()
	return nil
}

// Recv implements link.Adapter.
func (a *Adapter) Recv() ([]byte, error) {
	select {
	case msg := <-a.inbox:
		return msg, nil
	default:
		return nil, nil
	}
}

// Run implements Runnable. It connects the queue and subscribes until
// ctx is done.
func (a *Adapter) Run(ctx context.Context) error {
	if a.SubTopic != "" {
		sub := a.Queue.Sub(a.SubTopic, a.handleMsg)
		defer sub.Close()
	}
	token := a.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer a.Queue.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (a *Adapter) handleMsg(topic string, payload []byte) {
	select {
	case a.inbox <- payload:
	default:
		glog.Warningf("mqtt: inbox full, dropping message from %s", topic)
	}
}
