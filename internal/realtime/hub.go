package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nexus-app/nexus/internal/logging"
)

// Message is the envelope of every websocket frame in both directions.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewMessage builds a timestamped message.
func NewMessage(msgType string, data map[string]interface{}) *Message {
	return &Message{Type: msgType, Data: data, Timestamp: time.Now()}
}

// MessageHandler handles one inbound message of a registered type.
type MessageHandler func(c *Client, msg *Message)

// Hub tracks connected clients and fans broadcasts out to them.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	handlersMu sync.RWMutex
	handlers   map[string]MessageHandler
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 1),
		unregister: make(chan *Client, 1),
		done:       make(chan struct{}),
		handlers:   make(map[string]MessageHandler),
	}
}

// Run processes registrations until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.clientsMu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.clientsMu.Unlock()
			return
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = true
			h.clientsMu.Unlock()
			logging.Debugf("[Hub] client connected: %s", c.ID)
		case c := <-h.unregister:
			h.clientsMu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				c.Close()
			}
			h.clientsMu.Unlock()
			logging.Debugf("[Hub] client disconnected: %s", c.ID)
		}
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Handle registers the handler for inbound messages of msgType.
func (h *Hub) Handle(msgType string, handler MessageHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[msgType] = handler
}

func (h *Hub) handler(msgType string) MessageHandler {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return h.handlers[msgType]
}

// Broadcast sends msg to every connected client. Slow clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Errorf("[Hub] failed to marshal %s: %v", msg.Type, err)
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for c := range h.clients {
		if err := c.sendRaw(data); err != nil {
			logging.Warnf("[Hub] dropped %s for %s: %v", msg.Type, c.ID, err)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
