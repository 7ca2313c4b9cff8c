package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be below pongWait
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one user's live notification connection
type Client struct {
	Hub      *Hub
	ID       uint
	UserType string
	Conn     *websocket.Conn
	Send     chan []byte

	closed bool // guarded by Hub.mu
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServeWebSocket upgrades the request and registers the user with the hub
func ServeWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userType string) {
	hub.mu.RLock()
	upgrader := hub.upgrader
	hub.mu.RUnlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ Notification socket upgrade failed for user %d: %v", userID, err)
		return
	}

	client := &Client{
		Hub:      hub,
		ID:       userID,
		UserType: userType,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
	}
	hub.Register <- client

	go client.writePump()
	go client.readPump()
}

// readPump dispatches client messages until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Notification socket read error for user %d: %v", c.ID, err)
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.Hub.Reply(c, &Message{Type: MessageError, Data: map[string]string{"message": "messages must be JSON objects"}})
				continue
			}
			return
		}

		handler, ok := c.Hub.handler(msg.Type)
		if !ok {
			c.Hub.Reply(c, &Message{Type: MessageError, Data: map[string]string{"message": "unknown message type " + msg.Type}})
			continue
		}
		if err := handler(c, msg.Data); err != nil {
			log.Printf("❌ Handling %s from user %d: %v", msg.Type, c.ID, err)
		}
	}
}

// writePump writes one frame per queued message and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Closed by the hub, either on unregister or on replacement
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
