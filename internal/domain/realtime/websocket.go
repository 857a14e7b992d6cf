package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"earnaura/internal/pkg/jwt"
	"earnaura/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler upgrades /ws/:channel requests and runs the per-connection pumps.
type WSHandler struct {
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWSHandler builds the handler. An empty allowedOrigins accepts any origin.
func NewWSHandler(hub *Hub, jwtService *jwt.Service, allowedOrigins []string, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.ToLower(o)] = struct{}{}
	}

	return &WSHandler{
		hub: hub,
		jwt: jwtService,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				_, ok := origins[strings.ToLower(origin)]
				return ok
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/:channel", h.HandleWebSocket)
}

// HandleWebSocket authenticates via ?token= (browsers cannot set headers on
// the upgrade request) or the Authorization header.
//
// Endpoint: GET /ws/{notifications|admin}?token=JWT
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	channel := c.Param("channel")
	if channel != ChannelNotifications && channel != ChannelAdmin {
		response.Error(c, http.StatusNotFound, "UNKNOWN_CHANNEL", "Unknown channel: "+channel)
		return
	}

	token := c.Query("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	}
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	if channel == ChannelAdmin && !claims.CanReview() {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Admin channel requires reviewer privileges")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.serve(conn, claims.UserID, channel)
}

func (h *WSHandler) serve(conn *websocket.Conn, userID int64, channel string) {
	c := &connection{
		userID:  userID,
		channel: channel,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}

	if hs, err := json.Marshal(handshakeFor(channel)); err == nil {
		c.send <- hs
	}

	h.hub.register(c)
	h.log.Debug("websocket connected", zap.Int64("user_id", userID), zap.String("channel", channel))

	go h.writePump(c)
	h.readPump(c) // blocks until disconnect

	h.log.Debug("websocket disconnected", zap.Int64("user_id", userID), zap.String("channel", channel))
}

func (h *WSHandler) readPump(c *connection) {
	defer func() {
		h.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.reply(c, Event{Type: EventError, Code: "INVALID_JSON", Message: "Failed to parse message"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.reply(c, Event{Type: EventPong})
		case "subscribe":
			h.reply(c, Event{Type: EventSubscribed, Channel: c.channel})
		default:
			h.reply(c, Event{Type: EventError, Code: "UNKNOWN_TYPE", Message: "Unknown message type: " + msg.Type})
		}
	}
}

// reply queues a direct response. It only runs from readPump, before
// unregister closes the send channel.
func (h *WSHandler) reply(c *connection, ev Event) {
	ev.Timestamp = time.Now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *WSHandler) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
