package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"calagent/internal/models"
)

// Hub owns the set of live notification-channel connections and broadcasts
// server events (sync_complete, event_created, ...) to every client. One
// connection per client session; clients reconnect on their own.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla allows one concurrent writer
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// NewHub creates a hub accepting connections from the given origins. An empty
// list allows any origin.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			for _, o := range allowedOrigins {
				if strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeHTTP upgrades the request and services the connection until the peer
// goes away. Inbound traffic is limited to ping frames (answered with pong);
// anything else is logged and ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("WebSocket client connected", "clients", total)

	if err := c.writeJSON(models.Message{
		Type:      models.TypeConnectionEstablished,
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		h.remove(c)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Error("Invalid JSON frame from client", "error", err)
			continue
		}
		switch msg.Type {
		case models.TypePing:
			if err := c.writeJSON(models.Message{
				Type:      models.TypePong,
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				h.logger.Error("Failed to send pong", "error", err)
			}
		case models.TypePong:
			// liveness reply from the client, nothing to do
		default:
			h.logger.Warn("Unknown message type from client", "type", msg.Type)
		}
	}

	h.remove(c)
	h.logger.Info("WebSocket client disconnected")
}

// Broadcast sends a message to all connected clients. Clients whose write
// fails are dropped from the set.
func (h *Hub) Broadcast(msg models.Message) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		h.logger.Debug("No active connections to broadcast to", "type", msg.Type)
		return
	}
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			h.logger.Error("Failed to send message to client", "type", msg.Type, "error", err)
			h.remove(c)
		}
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}
