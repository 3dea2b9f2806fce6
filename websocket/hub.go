package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// RoomMindTalk is the single broadcast channel of this service.
const RoomMindTalk = "mindtalk"

// Server→client event kinds.
const (
	EventConnected   = "connected"
	EventNewPost     = "new-post"
	EventPostUpdated = "post-updated"
	EventPostDeleted = "post-deleted"
)

// Client→server event kinds.
const (
	EventJoinMindTalk  = "join-mindtalk"
	EventLeaveMindTalk = "leave-mindtalk"
)

// Event is the wire envelope for every message on the live channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub keeps the set of connected clients and the room membership, and
// fans post-change events out to room members. Delivery is at-most-once
// and best-effort: no replay, no queue for absent subscribers. Room
// membership is held only in memory and dies with the connection.
//
// The hub is an explicit service instance, constructed once at process
// start and handed to every mutation handler. There is no module-level
// singleton getter.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("✅ WebSocket client %s registered. Total clients: %d", c.id, total)
}

// unregister removes the client from every room and closes its send
// channel. Safe to call more than once per client.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for _, members := range h.rooms {
			delete(members, c)
		}
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("❌ WebSocket client %s unregistered. Total clients: %d", c.id, total)
}

// Join adds the client to a room. Idempotent: joining twice is the
// same as joining once.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	h.mu.Unlock()
	log.Printf("📌 Client %s joined room %s", c.id, room)
}

// Leave removes the client from a room. Idempotent; also happens
// implicitly on disconnect.
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
	}
	h.mu.Unlock()
	log.Printf("📌 Client %s left room %s", c.id, room)
}

// Publish sends the event to every client currently in the room. It
// runs synchronously inside the mutation's completion, strictly after
// the store write has been acknowledged. A client whose send buffer is
// full is dropped rather than allowed to stall the fan-out.
func (h *Hub) Publish(room, event string, payload interface{}) {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		log.Printf("❌ Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	members := h.rooms[room]
	log.Printf("📢 Broadcasting %s to %d clients in %s", event, len(members), room)
	for c := range members {
		select {
		case c.send <- data:
		default:
			// Evict from every room, not just the published one, so no
			// stale membership can send on the closed channel later.
			for _, other := range h.rooms {
				delete(other, c)
			}
			delete(h.clients, c)
			close(c.send)
			log.Printf("❌ Dropped slow client %s", c.id)
		}
	}
	h.mu.Unlock()
}

// RoomSize reports the current membership of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnectedClients reports the total number of connections.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
