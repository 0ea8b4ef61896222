package realtime

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rosterhub/roster/internal/pkg/ctxlog"
)

const (
	// pingInterval is how often the server pings each connection.
	pingInterval = 30 * time.Second

	// pongWait is how long to wait for a pong before the connection is
	// considered dead. Must exceed pingInterval.
	pongWait = 60 * time.Second

	// writeWait is the per-message write deadline.
	writeWait = 10 * time.Second

	// maxMessageSize limits inbound frames. Clients have nothing to say
	// on this feed beyond control frames.
	maxMessageSize = 512
)

// Handler upgrades HTTP requests to WebSocket connections subscribed
// to the change feed.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new realtime handler. allowedOrigins follows the
// CORS configuration; "*" permits any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin header.
				if origin == "" || originsSet["*"] {
					return true
				}
				return originsSet[origin]
			},
		},
	}
}

// RegisterRoutes registers the change-feed endpoint. Subscribing is
// public, like reading the roster itself.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.Serve)
}

// Serve handles GET /ws. The connection receives one JSON message per
// directory mutation until the client disconnects.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.hub.Subscribe()
	logger.Debug("change-feed subscriber connected", "remote_addr", r.RemoteAddr)

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump forwards hub events to the connection and keeps it alive
// with pings. It exits when the subscriber channel is closed or a
// write fails.
func (h *Handler) writePump(conn *websocket.Conn, sub *Subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}
}

// readPump discards inbound frames and unsubscribes on any read error,
// which covers both clean closes and abrupt disconnects.
func (h *Handler) readPump(conn *websocket.Conn, sub *Subscriber) {
	defer func() {
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
