package board

import (
	"encoding/json"
	"log"
	"sync"

	"office-queue/internal/models"
)

// Client is one connected board display.
type Client struct {
	ID   string
	Send chan []byte
}

// Hub fans served-call announcements out to connected boards and keeps a
// bounded ring of the most recent calls for late joiners. It satisfies the
// dispatch engine's Notifier.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	recent  []models.BoardCall
	limit   int
}

func NewHub(recentLimit int) *Hub {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &Hub{
		clients: make(map[string]*Client),
		limit:   recentLimit,
	}
}

// Register adds the client and returns the ring as of registration, most
// recent first. Snapshot and registration share one critical section so a
// concurrent publish lands either in the snapshot or on the channel, never
// both.
func (h *Hub) Register(client *Client) []models.BoardCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	out := make([]models.BoardCall, len(h.recent))
	copy(out, h.recent)
	return out
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

// PublishCall records the call and broadcasts it. Slow clients are skipped
// rather than blocking the dispatch path.
func (h *Hub) PublishCall(call models.BoardCall) {
	payload, err := json.Marshal(call)
	if err != nil {
		log.Printf("board call marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append([]models.BoardCall{call}, h.recent...)
	if len(h.recent) > h.limit {
		h.recent = h.recent[:h.limit]
	}

	for _, client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop board call for client %s", client.ID)
		}
	}
}

// Recent returns a copy of the ring, most recent first.
func (h *Hub) Recent() []models.BoardCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.BoardCall, len(h.recent))
	copy(out, h.recent)
	return out
}
