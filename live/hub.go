// Package live pushes carnival events to websocket subscribers grouped in per-carnival rooms.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

type Message struct {
	Type       string      `json:"type"`
	CarnivalID int         `json:"carnival_id"`
	Payload    interface{} `json:"payload"`
	SentAt     time.Time   `json:"sent_at"`
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	room     int
	isClosed bool
	mu       sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn, carnivalID int) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer), room: carnivalID}
}

// closeSend закрывает канал отправки ровно один раз.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.send)
		c.isClosed = true
	}
}

// trySend enqueues a message without blocking; a full buffer drops the message for this client.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	rooms      map[int]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[int]map[*Client]bool),
		logger:     logger,
	}
}

// Run processes subscriptions until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			size := len(h.rooms[client.room])
			h.mu.Unlock()
			h.logger.Debug("live client registered", slog.Int("carnival_id", client.room), slog.Int("room_size", size))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, ok := clients[client]; ok {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					client.closeSend()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Subscribe registers the client and starts its pumps.
func (h *Hub) Subscribe(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// RoomSize returns the number of subscribers for a carnival.
func (h *Hub) RoomSize(carnivalID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[carnivalID])
}

// Publish broadcasts an event to every subscriber of the carnival's room.
func (h *Hub) Publish(carnivalID int, eventType string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[carnivalID]
	if !ok || len(clients) == 0 {
		return
	}

	msg, err := json.Marshal(Message{Type: eventType, CarnivalID: carnivalID, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.logger.Warn("failed to marshal live event", slog.Int("carnival_id", carnivalID), slog.String("type", eventType), slog.Any("error", err))
		return
	}
	for client := range clients {
		if !client.trySend(msg) {
			h.logger.Debug("live client send buffer full, skipping", slog.Int("carnival_id", carnivalID))
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	// Входящие сообщения клиентов игнорируются.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("live client closed unexpectedly", slog.Int("carnival_id", c.room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
