package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 16 * 1024
	sendBuffer = 64
)

// connection represents a single WebSocket client on one channel
type connection struct {
	userID  int64
	channel string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub manages all active WebSocket connections on this instance.
// A user may hold several connections per channel (multiple tabs).
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[int64]map[*connection]struct{}
	log         *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		connections: make(map[string]map[int64]map[*connection]struct{}),
		log:         log,
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users, ok := h.connections[c.channel]
	if !ok {
		users = make(map[int64]map[*connection]struct{})
		h.connections[c.channel] = users
	}
	conns, ok := users[c.userID]
	if !ok {
		conns = make(map[*connection]struct{})
		users[c.userID] = conns
	}
	conns[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.connections[c.channel]
	conns := users[c.userID]
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(users, c.userID)
	}
	if len(users) == 0 {
		delete(h.connections, c.channel)
	}
}

// Deliver writes an envelope to the matching local connections and returns
// how many connections accepted it.
func (h *Hub) Deliver(env Envelope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := h.connections[env.Channel]
	if env.UserID != 0 {
		return h.enqueue(users[env.UserID], env.Event)
	}

	delivered := 0
	for _, conns := range users {
		delivered += h.enqueue(conns, env.Event)
	}
	return delivered
}

func (h *Hub) enqueue(conns map[*connection]struct{}, data []byte) int {
	n := 0
	for c := range conns {
		select {
		case c.send <- data:
			n++
		default:
			h.log.Warn("dropping event for slow client",
				zap.Int64("user_id", c.userID), zap.String("channel", c.channel))
		}
	}
	return n
}

// Online reports whether userID holds at least one connection on channel.
func (h *Hub) Online(channel string, userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[channel][userID]) > 0
}

// ConnectionCount returns the number of open connections on channel.
func (h *Hub) ConnectionCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, conns := range h.connections[channel] {
		n += len(conns)
	}
	return n
}
