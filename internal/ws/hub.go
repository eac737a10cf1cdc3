package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Client is a live socket, optionally tied to a signed-in user.
type Client struct {
	Conn   *websocket.Conn
	UserID string
}

type directMessage struct {
	userIDs []string
	payload []byte
}

type Hub struct {
	Clients    map[*websocket.Conn]string
	Register   chan *Client
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	direct     chan directMessage
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]string),
		Register:   make(chan *Client),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte),
		direct:     make(chan directMessage),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.Clients[client.Conn] = client.UserID
			h.mutex.Unlock()
			log.Printf("WS client connected (user=%q)", client.UserID)

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				h.write(conn, message)
			}
			h.mutex.Unlock()

		case msg := <-h.direct:
			targets := make(map[string]struct{}, len(msg.userIDs))
			for _, id := range msg.userIDs {
				targets[id] = struct{}{}
			}
			h.mutex.Lock()
			for conn, userID := range h.Clients {
				if _, ok := targets[userID]; ok && userID != "" {
					h.write(conn, msg.payload)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// write must be called with the mutex held.
func (h *Hub) write(conn *websocket.Conn, message []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		conn.Close()
		delete(h.Clients, conn)
	}
}

// BroadcastJSON queues payload for every connected client without blocking
// the caller. A nil hub drops the message.
func (h *Hub) BroadcastJSON(payload interface{}) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal broadcast: %v", err)
		return
	}
	go func() {
		h.Broadcast <- msg
	}()
}

// SendToUsers queues payload for the sockets of the given users only.
func (h *Hub) SendToUsers(userIDs []string, payload interface{}) {
	if h == nil || len(userIDs) == 0 {
		return
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal direct message: %v", err)
		return
	}
	go func() {
		h.direct <- directMessage{userIDs: userIDs, payload: msg}
	}()
}
