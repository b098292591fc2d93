package ws

import (
	"encoding/json"
	"sync"
)

// Record change actions broadcast over the realtime channel.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is a single record change notification.
type Event struct {
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	Record     json.RawMessage `json:"record"`
}

// Hub maintains the set of active clients and broadcasts record change
// events to them, one room per collection name.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop. Call as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.collection] == nil {
				h.rooms[client.collection] = make(map[*Client]bool)
			}
			h.rooms[client.collection][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.collection]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.collection)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.Collection]

			message, err := json.Marshal(event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister.
					close(client.send)
					delete(h.rooms[event.Collection], client)
					if len(h.rooms[event.Collection]) == 0 {
						delete(h.rooms, event.Collection)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a record change event to every client subscribed to the
// event's collection. This is the public API for handlers.
func (h *Hub) Broadcast(event Event) {
	h.broadcast <- event
}
