package notifications

import (
	"context"
	"errors"
	"sync"

	"medfeed/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerDoctor = 8
	maxTotalConns     = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrDoctorConnLimit = errors.New("doctor connection limit reached")
)

// Hub maps doctorID -> open notification sockets.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
	wsLog      *observability.WSLogger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uint]map[*Client]struct{}),
		wsLog: observability.NewWSLogger("notifications"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notifications" }

// Register a connection for a doctor. Fails when a connection limit is hit.
func (h *Hub) Register(doctorID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}

	m, ok := h.conns[doctorID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[doctorID] = m
	}
	if len(m) >= maxConnsPerDoctor {
		return nil, ErrDoctorConnLimit
	}

	client := newClient(h, conn, doctorID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	h.wsLog.LogConnect(context.Background(), doctorID)
	return client, nil
}

// UnregisterClient removes a client. Safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.DoctorID]
	if !ok {
		return
	}
	if _, exists := m[client]; exists {
		delete(m, client)
		h.totalConns--
		observability.WebSocketConnectionsTotal.Dec()
	}
	if len(m) == 0 {
		delete(h.conns, client.DoctorID)
	}
}

// Broadcast sends message to every connection the doctor has open.
func (h *Hub) Broadcast(doctorID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[doctorID]; ok {
		data := []byte(message)
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// Connections reports how many sockets a doctor currently holds.
func (h *Hub) Connections(doctorID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[doctorID])
}

// StartWiring subscribes to the notifier and forwards each message to the
// sockets of the doctor named by its channel.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		doctorID, ok := parseUserChannel(channel)
		if !ok {
			observability.GlobalLogger.Warn("invalid notification channel", "channel", channel)
			return
		}
		h.Broadcast(doctorID, payload)
	})
}

// Shutdown closes every socket and refuses new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for doctorID, clients := range h.conns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")); err != nil {
				h.wsLog.LogError(context.Background(), doctorID, err, "close")
			}
			_ = client.Conn.Close()
		}
	}
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
