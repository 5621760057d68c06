// Package ws streams session events to WebSocket subscribers.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/wordduel/internal/web/sse"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames
	maxMessageSize = 512
)

// Frame is the JSON envelope of every message written to a subscriber
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler upgrades HTTP requests and pumps hub events to the socket
type Handler struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			// Sessions are public by key; there is no cookie-based state to protect
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// Serve upgrades the request and streams the client's events until either
// side goes away. initial, if non-nil, is written first. The client is
// unregistered when Serve returns.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, client *sse.Client, initial *sse.Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		client.Close()
		h.logger.Warn("failed to upgrade connection", slog.Any("error", err))
		return
	}

	c := &connection{
		conn:   conn,
		client: client,
		logger: h.logger,
		done:   make(chan struct{}),
	}
	defer client.Close()

	go c.readPump()
	c.writePump(initial)
}

type connection struct {
	conn   *websocket.Conn
	client *sse.Client
	logger *slog.Logger
	done   chan struct{}
}

// readPump drains the peer so pongs and close frames are processed
func (c *connection) readPump() {
	defer close(c.done)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", slog.Any("error", err))
			}
			return
		}
	}
}

// writePump forwards hub events and keeps the connection alive
func (c *connection) writePump(initial *sse.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	if initial != nil {
		if err := c.writeEvent(*initial); err != nil {
			return
		}
	}

	for {
		select {
		case event, ok := <-c.client.Events():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeEvent(event); err != nil {
				c.logger.Debug("failed to write event", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *connection) writeEvent(event sse.Event) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(Frame{Event: event.Name, Data: json.RawMessage(event.Data)})
}
