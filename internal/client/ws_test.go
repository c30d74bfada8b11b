package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/netwatch/backend/internal/netstate"
	"github.com/netwatch/backend/internal/ws"
)

// flakyServer accepts websocket connections, sends a snapshot and one status,
// then drops the connection.
func flakyServer(t *testing.T, token string) (*httptest.Server, func() int) {
	t.Helper()
	var mu sync.Mutex
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		status := netstate.Wifi
		conn.WriteJSON(ws.WSMessage{Type: ws.MsgSnapshot, Seq: uint64(n*10 + 1), Payload: ws.SnapshotPayload{Status: &status}})
		conn.WriteJSON(ws.WSMessage{Type: ws.MsgStatus, Seq: uint64(n*10 + 2), Payload: ws.StatusPayload{Status: netstate.Mobile4G, At: time.Now()}})
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	}))
	t.Cleanup(srv.Close)
	return srv, func() int {
		mu.Lock()
		defer mu.Unlock()
		return conns
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRunReconnects(t *testing.T) {
	srv, _ := flakyServer(t, "")
	c := NewWSClient(wsURL(srv), "")
	c.SetBackoff(10*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var connects, disconnects int
	var statuses []netstate.ConnectStatus
	var snapshots int
	err := c.Run(ctx, Handlers{
		Connected: func() {
			mu.Lock()
			defer mu.Unlock()
			connects++
		},
		Disconnected: func(error) {
			mu.Lock()
			defer mu.Unlock()
			disconnects++
			if disconnects == 2 {
				cancel()
			}
		},
		Snapshot: func(p ws.SnapshotPayload) {
			mu.Lock()
			defer mu.Unlock()
			if p.Status != nil && *p.Status == netstate.Wifi {
				snapshots++
			}
		},
		Status: func(p ws.StatusPayload) {
			mu.Lock()
			defer mu.Unlock()
			statuses = append(statuses, p.Status)
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if connects < 2 {
		t.Errorf("connects = %d, want at least 2", connects)
	}
	if snapshots < 2 || len(statuses) < 2 {
		t.Errorf("snapshots = %d statuses = %v, want one of each per connection", snapshots, statuses)
	}
	for _, s := range statuses {
		if s != netstate.Mobile4G {
			t.Errorf("status = %s, want MOBILE_4G", s)
		}
	}
	if c.Seq()%10 != 2 {
		t.Errorf("Seq() = %d, want the last status seq", c.Seq())
	}
}

func TestRunSendsToken(t *testing.T) {
	srv, conns := flakyServer(t, "secret")
	c := NewWSClient(wsURL(srv), "secret")
	c.SetBackoff(10*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Run(ctx, Handlers{Status: func(ws.StatusPayload) { cancel() }})

	if conns() == 0 {
		t.Error("server never accepted the authenticated client")
	}
}

func TestRunGivesUpOnUnauthorized(t *testing.T) {
	srv, _ := flakyServer(t, "secret")
	c := NewWSClient(wsURL(srv), "wrong")
	c.SetBackoff(10*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx, Handlers{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Run err = %v, want ErrUnauthorized", err)
	}
}

func TestRunStopsWhileBackingOff(t *testing.T) {
	c := NewWSClient("ws://127.0.0.1:1/ws", "")
	c.SetBackoff(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, Handlers{}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
