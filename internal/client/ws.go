package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/netwatch/backend/internal/ws"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// ErrUnauthorized is returned by Run when the server rejects the token.
// Retrying would not help, so Run gives up.
var ErrUnauthorized = errors.New("server rejected the auth token")

// Handlers receives stream events. Nil fields are skipped.
type Handlers struct {
	Connected    func()
	Disconnected func(err error)
	Snapshot     func(ws.SnapshotPayload)
	Status       func(ws.StatusPayload)
}

// WSClient follows the status stream of a netwatch daemon.
type WSClient struct {
	url   string
	token string

	baseDelay time.Duration
	maxDelay  time.Duration

	mu      sync.Mutex
	writeMu sync.Mutex // serialises control writes
	seq     uint64
}

// NewWSClient creates a client for the given WebSocket URL. token, when set,
// is sent as a bearer token.
func NewWSClient(url, token string) *WSClient {
	return &WSClient{
		url:       url,
		token:     token,
		baseDelay: reconnectBaseDelay,
		maxDelay:  reconnectMaxDelay,
	}
}

// SetBackoff overrides the reconnect delays.
func (c *WSClient) SetBackoff(base, maxDelay time.Duration) {
	if base > 0 {
		c.baseDelay = base
	}
	if maxDelay >= c.baseDelay {
		c.maxDelay = maxDelay
	}
}

// Run connects and delivers messages to h until ctx is cancelled,
// reconnecting with exponential backoff whenever the connection drops.
func (c *WSClient) Run(ctx context.Context, h Handlers) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	delay := c.baseDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return ErrUnauthorized
			}
			log.Printf("ws dial error: %v (retry in %v)", err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, c.maxDelay)
			continue
		}
		delay = c.baseDelay

		if h.Connected != nil {
			h.Connected()
		}
		err = c.readLoop(ctx, conn, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if h.Disconnected != nil {
			h.Disconnected(err)
		}
	}
}

// readLoop reads until the connection fails or ctx is cancelled.
func (c *WSClient) readLoop(ctx context.Context, conn *websocket.Conn, h Handlers) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	go func() {
		<-connCtx.Done()
		conn.Close()
	}()
	go c.pingLoop(connCtx, conn)

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg struct {
			Type    ws.MessageType  `json:"type"`
			Seq     uint64          `json:"seq"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		c.mu.Lock()
		c.seq = msg.Seq
		c.mu.Unlock()

		c.dispatch(msg.Type, msg.Payload, h)
	}
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Seq returns the last seen sequence number.
func (c *WSClient) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *WSClient) dispatch(t ws.MessageType, payload json.RawMessage, h Handlers) {
	switch t {
	case ws.MsgSnapshot:
		var p ws.SnapshotPayload
		if json.Unmarshal(payload, &p) == nil && h.Snapshot != nil {
			h.Snapshot(p)
		}
	case ws.MsgStatus:
		var p ws.StatusPayload
		if json.Unmarshal(payload, &p) == nil && h.Status != nil {
			h.Status(p)
		}
	}
}
