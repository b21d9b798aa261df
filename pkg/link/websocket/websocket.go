// Package websocket relays Remote ID messages over websocket binary
// frames, one message per frame.
package websocket

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/phoenix.go/pkg/link"
)

// ReadWriter implements link.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Dial connects to a relay, e.g. ws://host:8080/rid, and returns a Pipe
// over the connection. The Pipe must be run.
func Dial(rawURL string) (*link.Pipe, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	origin := &url.URL{Scheme: "http", Host: u.Host}
	if u.Scheme == "wss" {
		origin.Scheme = "https"
	}
	conn, err := websocket.Dial(rawURL, "", origin.String())
	if err != nil {
		return nil, err
	}
	glog.Infof("websocket: connected to %s", rawURL)
	return link.NewPipe(New(conn)), nil
}

// Hub is a relay: every message received from a client is forwarded to
// all other clients.
type Hub struct {
	lock    sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(h.serve).ServeHTTP(w, r)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) serve(conn *websocket.Conn) {
	h.lock.Lock()
	h.clients[conn] = struct{}{}
	h.lock.Unlock()
	glog.V(2).Infof("websocket: client %s connected", conn.Request().RemoteAddr)
	defer func() {
		h.lock.Lock()
		delete(h.clients, conn)
		h.lock.Unlock()
		conn.Close()
		glog.V(2).Infof("websocket: client %s disconnected", conn.Request().RemoteAddr)
	}()
	rw := New(conn)
	for {
		msg, err := rw.ReadPacket()
		if err != nil {
			return
		}
		h.forward(conn, msg)
	}
}

func (h *Hub) forward(from *websocket.Conn, msg []byte) {
	h.lock.Lock()
	peers := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		if conn != from {
			peers = append(peers, conn)
		}
	}
	h.lock.Unlock()
	for _, conn := range peers {
		if err := New(conn).WritePacket(msg); err != nil {
			glog.Warningf("websocket: forward to %s error: %v", conn.Request().RemoteAddr, err)
		}
	}
}
