package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types exchanged on the notification socket
const (
	MessagePing        = "ping"
	MessagePong        = "pong"
	MessageMarkRead    = "mark_read"
	MessageUnreadCount = "unread_count"
	MessageError       = "error"
)

// Message is the envelope pushed to clients. Notifications use the
// notification type as Type and the stored notification as Data.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageHandler handles a message a client sent up the socket
type MessageHandler func(client *Client, payload json.RawMessage) error

// Hub tracks one live notification socket per user. A newer connection
// replaces the older one.
type Hub struct {
	Clients map[uint]*Client

	Register   chan *Client
	Unregister chan *Client

	handlers map[string]MessageHandler
	upgrader websocket.Upgrader
	mu       sync.RWMutex
}

// NewHub creates a hub that accepts upgrades from any origin until AllowOrigins is called
func NewHub() *Hub {
	hub := &Hub{
		Clients:    make(map[uint]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		handlers:   make(map[string]MessageHandler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	hub.Handle(MessagePing, hub.handlePing)
	return hub
}

// Handle registers the handler for a client message type
func (h *Hub) Handle(kind string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[kind] = handler
}

// AllowOrigins restricts browser upgrades to the given origins. Clients that
// send no Origin header are not browsers and are always accepted.
func (h *Hub) AllowOrigins(origins []string) {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Run owns registration. It must be running before clients connect.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if previous, ok := h.Clients[client.ID]; ok && previous != client {
				previous.closed = true
				close(previous.Send)
			}
			h.Clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔌 Notification socket opened: user=%d type=%s", client.ID, client.UserType)

		case client := <-h.Unregister:
			h.mu.Lock()
			if current, ok := h.Clients[client.ID]; ok && current == client {
				delete(h.Clients, client.ID)
				client.closed = true
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Notification socket closed: user=%d", client.ID)
		}
	}
}

// SendToUser pushes a message to a connected user. Offline users are skipped;
// the persisted notification is their copy.
func (h *Hub) SendToUser(userID uint, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.Clients[userID]; ok {
		h.deliver(client, message)
	}
}

// Reply answers the connection that sent a message. The reply is dropped when
// that connection has already been closed by the hub.
func (h *Hub) Reply(client *Client, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !client.closed {
		h.deliver(client, message)
	}
}

// deliver queues an encoded message without blocking. Callers hold mu so Run
// cannot close the channel underneath the send.
func (h *Hub) deliver(client *Client, message *Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error encoding %s message: %v", message.Type, err)
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ Dropping %s for user %d, send buffer full", message.Type, client.ID)
	}
}

func (h *Hub) handler(kind string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[kind]
	return handler, ok
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.Clients[userID]
	return exists
}

// ConnectedCount returns the number of live connections
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

func (h *Hub) handlePing(client *Client, _ json.RawMessage) error {
	h.Reply(client, &Message{Type: MessagePong})
	return nil
}
