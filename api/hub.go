package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"weather-dashboard/dashboard"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
)

// Hub pushes dashboard state to connected WebSocket clients
type Hub struct {
	upgrader websocket.Upgrader
	snapshot func() any
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*wsClient
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// NewHub creates a hub; snapshot renders the message sent on connect
func NewHub(snapshot func() any, logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		snapshot: snapshot,
		logger:   logger,
		clients:  make(map[string]*wsClient),
	}
}

// Run broadcasts every state received on updates until the channel closes,
// then disconnects all clients
func (h *Hub) Run(updates <-chan dashboard.State, render func(dashboard.State) any) {
	for state := range updates {
		message, err := json.Marshal(render(state))
		if err != nil {
			h.logger.Error("failed to encode state", "error", err)
			continue
		}
		h.Broadcast(message)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// Broadcast queues message for every client. Clients that cannot keep
// up are dropped.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- message:
		default:
			h.logger.Warn("dropping slow websocket client", "client", id)
			c.close()
			delete(h.clients, id)
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and streams state until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientSendSize),
	}

	if initial, err := json.Marshal(h.snapshot()); err == nil {
		c.send <- initial
	}

	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "client", c.id, "clients", count)

	go h.writePump(c)

	// Read until the client disconnects; incoming messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", "client", c.id, "error", err)
			}
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.mu.Unlock()
	h.logger.Info("websocket client disconnected", "client", c.id)
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Debug("websocket write error", "client", c.id, "error", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
