package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/rrocketmann/Hanvas/internal/gesture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StateHub pushes session-state, hand-state and status updates to WebSocket
// clients. It implements status.Sink, so the detection loop publishes
// straight into it. All connection writes happen on a single writer
// goroutine; gorilla connections do not support concurrent writers.
type StateHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]string
	send    chan []byte
}

// NewStateHub creates an empty StateHub and starts its writer goroutine.
func NewStateHub() *StateHub {
	h := &StateHub{
		clients: make(map[*websocket.Conn]string),
		send:    make(chan []byte, 64),
	}
	go h.writeLoop()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()

	h.mu.Lock()
	h.clients[conn] = id
	h.mu.Unlock()
	log.Printf("State client connected: %s", id)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		log.Printf("State client disconnected: %s", id)
	}()

	// Keep the connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// SetSessionState implements status.Sink.
func (h *StateHub) SetSessionState(state string) {
	h.broadcast("session_state", state)
}

// SetHandState implements status.Sink.
func (h *StateHub) SetHandState(state gesture.State) {
	h.broadcast("hand_state", string(state))
}

// Report implements status.Sink.
func (h *StateHub) Report(message string) {
	h.broadcast("status", message)
}

func (h *StateHub) broadcast(kind, value string) {
	h.mu.RLock()
	empty := len(h.clients) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	msg, _ := json.Marshal(map[string]any{
		"type":      kind,
		"value":     value,
		"timestamp": time.Now().UnixMilli(),
	})

	// A backlogged writer drops the update; the next state change
	// supersedes it.
	select {
	case h.send <- msg:
	default:
	}
}

// writeLoop delivers queued updates to every connected client. It is the
// only goroutine that writes to the connections.
func (h *StateHub) writeLoop() {
	for msg := range h.send {
		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}

// ClientCount returns the number of connected clients.
func (h *StateHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
