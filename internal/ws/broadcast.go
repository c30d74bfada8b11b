package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/netwatch/backend/internal/monitor"
	"github.com/netwatch/backend/internal/netstate"
)

var ErrTooManyConnections = errors.New("too many websocket connections")

// ClientObserver is told the client count whenever it changes.
type ClientObserver interface {
	SetStreamClients(n int)
}

// client is one websocket connection. It is registered as a listener in the
// status registry for as long as it is connected.
type client struct {
	conn *websocket.Conn
	hub  *Hub
	sub  netstate.Subscription

	mu     sync.Mutex
	send   chan []byte
	ready  bool // snapshot queued; earlier statuses are already in it
	closed bool
}

// OnStatusChanged queues the status for the client. It never blocks: a
// client whose queue is full is disconnected.
func (c *client) OnStatusChanged(status netstate.ConnectStatus) {
	ok := c.queue(func() ([]byte, error) {
		return c.hub.encode(MsgStatus, StatusPayload{Status: status, At: time.Now()})
	})
	if !ok {
		log.Printf("ws client too slow, disconnecting")
		c.hub.RemoveClient(c)
	}
}

// queue encodes and enqueues a message under c.mu, so queue order matches
// seq order. It reports false only when the queue is full. Messages for a
// closed client, or statuses arriving before the snapshot, are dropped.
func (c *client) queue(build func() ([]byte, error)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.ready {
		return true
	}
	data, err := build()
	if err != nil {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// start queues the snapshot as the first message and opens the client to
// status messages. The client must already be subscribed: the detector
// records each event before dispatching it, so any status dropped while
// the client was not ready is reflected in the snapshot.
func (c *client) start(snapshot func() SnapshotPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if data, err := c.hub.encode(MsgSnapshot, snapshot()); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}
	c.ready = true
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.RemoveClient(c)
			return
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans dispatched statuses out to websocket clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	registry *netstate.Registry
	detector *monitor.Detector
	maxConns int
	seq      atomic.Uint64
	observer ClientObserver
}

// NewHub creates a hub whose clients subscribe to registry. detector, when
// set, supplies the snapshot sent to newly connected clients. maxConns <= 0
// means unlimited.
func NewHub(registry *netstate.Registry, detector *monitor.Detector, maxConns int) *Hub {
	return &Hub{
		clients:  make(map[*client]bool),
		registry: registry,
		detector: detector,
		maxConns: maxConns,
	}
}

func (h *Hub) SetObserver(o ClientObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = o
}

// SetMaxConnections changes the connection limit for future clients.
func (h *Hub) SetMaxConnections(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxConns = n
}

func (h *Hub) AddClient(conn *websocket.Conn) (*client, error) {
	h.mu.Lock()
	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		h.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	c := &client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, 64),
	}
	h.clients[c] = true
	count, observer := len(h.clients), h.observer
	h.mu.Unlock()

	if observer != nil {
		observer.SetStreamClients(count)
	}

	// Subscribe before reading the snapshot so no dispatch falls between
	// the two; start holds statuses back until the snapshot is queued.
	c.sub, _ = h.registry.Add(c)
	c.start(h.snapshot)
	go c.writePump()
	return c, nil
}

func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count, observer := len(h.clients), h.observer
	h.mu.Unlock()

	if !ok {
		return
	}
	h.registry.Remove(c.sub)
	c.close()
	if observer != nil {
		observer.SetStreamClients(count)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.RemoveClient(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() SnapshotPayload {
	var p SnapshotPayload
	if h.detector == nil {
		return p
	}
	p.Health = h.detector.Health()
	if ev, ok := h.detector.Last(); ok {
		status := ev.Status
		p.Status = &status
		p.Snapshot = ev.Snapshot
		p.At = ev.At
	}
	return p
}

func (h *Hub) encode(t MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(WSMessage{Type: t, Seq: h.seq.Add(1), Payload: payload})
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
	}
	return data, err
}
