package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types pushed to connected clients.
const (
	EventSessionRevoked = "session_revoked"
	EventCachesFlushed  = "caches_flushed"
)

// Event is the payload written to websocket clients.
type Event struct {
	Type  string    `json:"type"`
	Epoch uint64    `json:"epoch,omitempty"`
	At    time.Time `json:"at"`
}

// Encode returns the wire form of e.
func (e Event) Encode() []byte {
	data, _ := json.Marshal(e)
	return data
}

// Client represents a single websocket client connection.
// The actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active account connections and broadcasts events to them.
type Hub struct {
	mu                 sync.RWMutex
	accountIDToClients map[string]map[Client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{accountIDToClients: make(map[string]map[Client]struct{})}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns the process-wide hub.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub()
	})
	return hubInstance
}

// Register adds a client under an account ID.
func (h *Hub) Register(accountID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.accountIDToClients[accountID]; !ok {
		h.accountIDToClients[accountID] = make(map[Client]struct{})
	}
	h.accountIDToClients[accountID][client] = struct{}{}
}

// Unregister removes a client; if the account has no more clients, cleans up map.
func (h *Hub) Unregister(accountID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.accountIDToClients[accountID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.accountIDToClients, accountID)
		}
	}
}

// Broadcast sends a message to all clients of an account and returns how many
// accepted it. Failed clients are cleaned up by their handler.
func (h *Hub) Broadcast(accountID string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.accountIDToClients[accountID] {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// BroadcastAll sends a message to every connected client.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, clients := range h.accountIDToClients {
		for c := range clients {
			if c.Send(message) {
				sent++
			}
		}
	}
	return sent
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.accountIDToClients {
		n += len(clients)
	}
	return n
}
