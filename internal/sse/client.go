package sse

import (
	"net/http"
	"time"

	"github.com/mcoot/diamondsgame/internal/model"
)

const (
	keepalivePeriod = 30 * time.Second
	sendBufferSize  = 64
	// reconnectDelayMillis is advertised to EventSource clients on connect
	reconnectDelayMillis = "3000"
)

// Client is one connected event stream
type Client struct {
	playerID    model.PlayerID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a stream client for a player
func NewClient(playerID model.PlayerID) *Client {
	return &Client{
		playerID:    playerID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams a hub's events to one HTTP client. It returns when the
// request is cancelled, the hub drops the client, or a write fails.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, playerID model.PlayerID) {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(playerID)
	if !hub.Register(client) {
		http.Error(w, "Session stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	write := func(b []byte) bool {
		if _, err := w.Write(b); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	hello := append([]byte("retry: "+reconnectDelayMillis+"\n"), formatSSEMessage("connected", `{"status":"connected"}`)...)
	if !write(hello) {
		return
	}

	keepalive := time.NewTicker(keepalivePeriod)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if !write([]byte(": keepalive\n\n")) {
				return
			}
		case message, ok := <-client.send:
			if !ok || !write(message) {
				return
			}
		}
	}
}
