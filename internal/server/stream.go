package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RunEvent is pushed to every stream subscriber when an analysis completes.
type RunEvent struct {
	RunID    string `json:"run_id"`
	Flagged  int    `json:"suspicious_accounts_flagged"`
	Rings    int    `json:"fraud_rings_detected"`
	Accounts int    `json:"total_accounts_analyzed"`
}

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The stream is read-only for clients and carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans run events out to connected websocket clients. Slow clients are
// dropped rather than allowed to block a broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Broadcast sends the event to all subscribers.
func (h *Hub) Broadcast(ev RunEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("stream: dropping client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects future subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

func (h *Hub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = true
	return true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// handleStream upgrades the connection and keeps it registered until the
// client goes away. Incoming messages are discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("stream: upgrade failed")
		return
	}
	if !s.hub.add(conn) {
		conn.Close()
		return
	}
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("stream: client connected")

	go func() {
		defer func() {
			s.hub.remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
