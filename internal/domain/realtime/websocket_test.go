package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"earnaura/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv *httptest.Server
	hub *Hub
	jwt *jwt.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil)
	jwtSvc := jwt.New("ws-secret", time.Hour)

	r := gin.New()
	NewWSHandler(hub, jwtSvc, nil, nil).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, hub: hub, jwt: jwtSvc}
}

func (ts *testServer) dial(t *testing.T, channel string, userID int64, role string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	token, err := ts.jwt.GenerateToken(userID, role)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/" + channel + "?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWebSocket_HandshakeAndDelivery(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := ts.dial(t, ChannelNotifications, 11, "student")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, EventConnectionEstablished, readEvent(t, conn)["type"])

	require.Eventually(t, func() bool { return ts.hub.Online(ChannelNotifications, 11) }, time.Second, 10*time.Millisecond)

	pub := NewPublisher(NewMemoryBroker(ts.hub), nil)
	pub.ToUser(context.Background(), ChannelNotifications, 11, Event{
		Type:    EventAdminRequestStatusUpdate,
		Title:   "Status changed",
		Message: "Your request is under review",
	})

	ev := readEvent(t, conn)
	assert.Equal(t, EventAdminRequestStatusUpdate, ev["type"])
	assert.Equal(t, "Your request is under review", ev["message"])
}

func TestWebSocket_OtherUsersDoNotReceive(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := ts.dial(t, ChannelNotifications, 1, "student")
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	require.Eventually(t, func() bool { return ts.hub.Online(ChannelNotifications, 1) }, time.Second, 10*time.Millisecond)

	env, err := NewEnvelope(ChannelNotifications, 2, Event{Type: EventNotification})
	require.NoError(t, err)
	assert.Equal(t, 0, ts.hub.Deliver(env))
}

func TestWebSocket_PingPong(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := ts.dial(t, ChannelNotifications, 3, "student")
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, EventPong, readEvent(t, conn)["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev["type"])
	assert.Equal(t, "INVALID_JSON", ev["code"])
}

func TestWebSocket_AdminChannel(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := ts.dial(t, ChannelAdmin, 4, "student")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := ts.dial(t, ChannelAdmin, 5, "super_admin")
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, EventAdminConnectionEstablished, readEvent(t, conn)["type"])

	require.Eventually(t, func() bool { return ts.hub.ConnectionCount(ChannelAdmin) == 1 }, time.Second, 10*time.Millisecond)

	NewPublisher(NewMemoryBroker(ts.hub), nil).ToChannel(context.Background(), ChannelAdmin, Event{Type: EventAdminRequestSubmitted})
	assert.Equal(t, EventAdminRequestSubmitted, readEvent(t, conn)["type"])
}

func TestWebSocket_RejectsUnknownChannelAndBadToken(t *testing.T) {
	ts := newTestServer(t)

	_, resp, err := ts.dial(t, "gossip", 1, "student")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/notifications?token=garbage"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := ts.dial(t, ChannelNotifications, 9, "student")
	require.NoError(t, err)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return ts.hub.Online(ChannelNotifications, 9) }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return !ts.hub.Online(ChannelNotifications, 9) }, 2*time.Second, 10*time.Millisecond)
}
