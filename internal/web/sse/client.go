package sse

import (
	"net/http"
	"time"
)

const (
	// Time between keepalive comments
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one subscriber to a session hub
type Client struct {
	hub         *Hub
	id          string
	transport   string
	send        chan Event
	connectedAt time.Time
}

// NewClient creates a new client for a hub
func NewClient(hub *Hub, id, transport string) *Client {
	return &Client{
		hub:         hub,
		id:          id,
		transport:   transport,
		send:        make(chan Event, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Events returns the channel of events for this client. It is closed when
// the client is unregistered or the hub shuts down.
func (c *Client) Events() <-chan Event {
	return c.send
}

// Close unregisters the client from its hub
func (c *Client) Close() {
	c.hub.Unregister(c)
}

// ServeSSE streams a client's events as server-sent events until the
// request is cancelled or the hub closes. initial, if non-nil, is written
// first so the subscriber starts from a known state.
func ServeSSE(w http.ResponseWriter, r *http.Request, client *Client, initial *Event) {
	defer client.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	_, _ = w.Write(formatSSEMessage("connected", `{"status":"connected"}`))
	if initial != nil {
		_, _ = w.Write(formatSSEMessage(initial.Name, string(initial.Data)))
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(formatSSEMessage(event.Name, string(event.Data))); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
