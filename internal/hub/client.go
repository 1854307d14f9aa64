package hub

import (
	"log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/kastent/kastentd/internal/metrics"
)

const sendBuffer = 32

// Client is one websocket connection. Events fan in through the hub and
// out through a buffered send channel drained by the write pump.
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Event
	limiter *rate.Limiter
}

// Register wraps an upgraded connection. The caller runs it with Run.
func (h *Hub) Register(conn *websocket.Conn, limit rate.Limit, burst int) *Client {
	return &Client{
		ID:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan Event, sendBuffer),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Run pumps the connection until it drops, then leaves every joined room.
func (c *Client) Run() {
	metrics.WSConnections.Inc()
	done := make(chan struct{})
	go c.writePump(done)
	c.readPump()
	close(done)
	c.hub.Leave(c)
	c.conn.Close()
	metrics.WSConnections.Dec()
}

type inboundEvent struct {
	Type    string `json:"type"`
	TentID  string `json:"tentId"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (c *Client) readPump() {
	for {
		var msg inboundEvent
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("hub: connection %s read error: %v", c.ID, err)
			}
			return
		}
		if msg.TentID == "" {
			continue
		}
		if !c.limiter.Allow() {
			// flooding connection, drop the event
			continue
		}
		switch msg.Type {
		case EventJoinRoom:
			c.hub.JoinRoom(c, msg.TentID)
		case EventChatMessage:
			c.hub.RelayChat(msg.TentID, msg.Sender, msg.Message)
		case EventStatusUpdate:
			c.hub.RelayStatus(msg.TentID, msg.Sender, msg.Status)
		}
	}
}

func (c *Client) writePump(done <-chan struct{}) {
	for {
		select {
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
