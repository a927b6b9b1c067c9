package services

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"memviz/internal/models"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"` // view event type, "heartbeat", "pong", "error"
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Token     string      `json:"token,omitempty"` // For auth messages from client
	ID        string      `json:"id,omitempty"`    // For dismiss messages from client
}

// ClientConnection represents a connected WebSocket client
type ClientConnection struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan WebSocketMessage
	Close chan bool
}

// NewClientConnection creates a client with a buffered send queue
func NewClientConnection(id string, conn *websocket.Conn) *ClientConnection {
	return &ClientConnection{
		ID:    id,
		Conn:  conn,
		Send:  make(chan WebSocketMessage, 256),
		Close: make(chan bool),
	}
}

// WebSocketHub fans view events out to all connected dashboard clients
type WebSocketHub struct {
	clients   map[string]*ClientConnection
	mu        sync.RWMutex
	heartbeat time.Duration
	done      chan bool
	stopOnce  sync.Once
	log       *logrus.Entry
}

// NewWebSocketHub creates a hub; heartbeat is how often clients are sent a
// liveness message (0 disables it)
func NewWebSocketHub(heartbeat time.Duration) *WebSocketHub {
	return &WebSocketHub{
		clients:   make(map[string]*ClientConnection),
		heartbeat: heartbeat,
		done:      make(chan bool),
		log:       logrus.StandardLogger().WithField("type", "services/websocket"),
	}
}

// Start runs the heartbeat loop
func (h *WebSocketHub) Start() {
	if h.heartbeat <= 0 {
		return
	}
	go h.run()
}

func (h *WebSocketHub) run() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.broadcast(WebSocketMessage{
				Type:      "heartbeat",
				Timestamp: time.Now(),
				Data:      map[string]int{"clients": h.ClientCount()},
			})
		}
	}
}

// Publish implements Publisher. It never blocks: a client whose send queue is
// full misses the event and must refetch the view.
func (h *WebSocketHub) Publish(event models.ViewEvent) {
	h.broadcast(WebSocketMessage{
		Type:      event.Type,
		Timestamp: time.Now(),
		Data:      event.Data,
	})
}

func (h *WebSocketHub) broadcast(msg WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			h.log.WithField("client", client.ID).Warn("send queue full, dropping message")
		}
	}
}

// Register adds a new client to the hub
func (h *WebSocketHub) Register(client *ClientConnection) {
	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"client": client.ID, "total": total}).Info("client connected")
}

// Unregister removes a client from the hub and closes its send queue
func (h *WebSocketHub) Unregister(clientID string) {
	h.mu.Lock()
	client, exists := h.clients[clientID]
	if exists {
		delete(h.clients, clientID)
		close(client.Send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if exists {
		h.log.WithFields(logrus.Fields{"client": clientID, "total": total}).Info("client disconnected")
	}
}

// SendMessage sends a message to a specific client
func (h *WebSocketHub) SendMessage(clientID string, msg WebSocketMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[clientID]
	if !exists {
		return false
	}

	select {
	case client.Send <- msg:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the heartbeat loop and disconnects every client
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			close(client.Send)
		}
		h.mu.Unlock()
	})
}
