package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/castle/internal/model"
)

// Message tells staff devices that a checklist changed so they can refresh.
type Message struct {
	Type      string    `json:"type"`
	Checklist string    `json:"checklist,omitempty"`
	SectionID int64     `json:"section_id,omitempty"`
	ChoreID   int64     `json:"chore_id,omitempty"`
	StaffName string    `json:"staff_name,omitempty"`
	Summary   string    `json:"summary"`
	At        time.Time `json:"at"`
}

// MessageFromIntent builds the broadcast for a committed transition.
func MessageFromIntent(in model.Intent) Message {
	return Message{
		Type:      string(in.Kind),
		Checklist: in.Details.Checklist,
		SectionID: in.Details.SectionID,
		ChoreID:   in.Details.ChoreID,
		StaffName: in.StaffName,
		Summary:   in.Summary,
		At:        in.Timestamp,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client watching its checklist. Clients
// without a filter receive everything. It returns the number of clients the
// message was queued for.
func (h *Hub) Broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var queued, dropped int
	for c := range h.clients {
		if c.checklist != "" && c.checklist != msg.Checklist {
			continue
		}
		select {
		case c.send <- data:
			queued++
		default:
			// Slow client; it will catch up on its next full refresh.
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("broadcast dropped for slow clients", "type", msg.Type, "dropped", dropped)
	}
	return queued
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
