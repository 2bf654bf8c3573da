package notifications

import (
	"context"
	"time"

	"medfeed/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are only pings and acks.
	maxMessageSize = 1024

	sendBuffer = 64
)

var dropNotice = []byte(`{"type":"notifications_dropped","payload":{"reason":"buffer_full"}}`)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	DoctorID uint
}

func newClient(hub *Hub, conn *websocket.Conn, doctorID uint) *Client {
	return &Client{
		hub:      hub,
		Conn:     conn,
		DoctorID: doctorID,
		Send:     make(chan []byte, sendBuffer),
	}
}

// ReadPump drains inbound frames so control messages are processed; it
// unregisters the client once the peer goes away.
func (c *Client) ReadPump() {
	reason := "closed"
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
		c.hub.wsLog.LogDisconnect(context.Background(), c.DoctorID, reason)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				reason = "unexpected_close"
				c.hub.wsLog.LogError(context.Background(), c.DoctorID, err, "read")
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a message without blocking. A full buffer drops the message
// and tries to tell the client so it can re-fetch its inbox.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
		select {
		case c.Send <- dropNotice:
		default:
		}
	}
}
