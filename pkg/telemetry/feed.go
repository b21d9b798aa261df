package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	feedQueueSize    = 16
	feedWriteTimeout = 10 * time.Second
)

// Feed streams received summaries to websocket clients as CBOR encoded
// binary messages. Slow clients lose summaries rather than block Publish.
type Feed struct {
	upgrader websocket.Upgrader

	lock    sync.Mutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn *websocket.Conn
	out  chan []byte
}

// NewFeed creates a Feed.
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.clients)
}

// Publish sends s to all connected clients.
func (f *Feed) Publish(s Summary) error {
	data, err := EncodeSummary(s)
	if err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for c := range f.clients {
		select {
		case c.out <- data:
		default:
			glog.V(2).Infof("feed: client %s too slow, summary dropped", c.conn.RemoteAddr())
		}
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("feed: upgrade failed: %v", err)
		return
	}
	c := &feedClient{conn: conn, out: make(chan []byte, feedQueueSize)}
	f.lock.Lock()
	f.clients[c] = struct{}{}
	f.lock.Unlock()
	glog.Infof("feed: client %s connected", conn.RemoteAddr())

	done := make(chan struct{})
	go f.write(c, done)
	// Clients don't send anything, reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	f.lock.Lock()
	delete(f.clients, c)
	f.lock.Unlock()
	conn.Close()
	glog.Infof("feed: client %s disconnected", conn.RemoteAddr())
}

func (f *Feed) write(c *feedClient, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				glog.Warningf("feed: write to %s failed: %v", c.conn.RemoteAddr(), err)
				c.conn.Close()
				return
			}
		}
	}
}
