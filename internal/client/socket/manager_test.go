package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts sockets, records what clients send and lets the test
// push frames to the latest connection.
type fakeServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received [][]byte
	tokens   []string
	accepts  atomic.Int32
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.accepts.Add(1)
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.tokens = append(fs.tokens, r.URL.Query().Get("token"))
		fs.mu.Unlock()

		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				fs.mu.Lock()
				fs.received = append(fs.received, data)
				fs.mu.Unlock()
			}
		}()
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/ws/notifications"
}

func (fs *fakeServer) latest() *websocket.Conn {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.conns) == 0 {
		return nil
	}
	return fs.conns[len(fs.conns)-1]
}

func (fs *fakeServer) push(t *testing.T, payload string) {
	t.Helper()
	conn := fs.latest()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (fs *fakeServer) receivedCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.received)
}

func fastConfig(url string) Config {
	return Config{
		URL:     url,
		Token:   "secret token",
		Backoff: Backoff{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond, Factor: 2, Jitter: 0.5},
	}
}

func TestManager_OpensSendsHandshakeAndDispatches(t *testing.T) {
	fs := newFakeServer(t)

	cfg := fastConfig(fs.url())
	cfg.Handshake = map[string]string{"type": "subscribe", "channel": "notifications"}
	m := NewManager(cfg, nil)

	var mu sync.Mutex
	var got []Message
	m.OnMessage(func(msg Message) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	m.Start()
	defer m.Close()

	require.Eventually(t, func() bool { return m.Status() == StatusOpen }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return fs.receivedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "secret token", fs.tokens[0])
	assert.Equal(t, "● online (open)", m.StatusIndicator())

	fs.push(t, `{"type":"notification","message":"one","notification_id":12}`)
	fs.push(t, `not json`)
	fs.push(t, `{"message":"no type"}`)
	fs.push(t, `{"type":"notification","message":"two"}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "12", got[0].NotificationID)
	assert.Equal(t, "two", got[1].Message)
}

func TestManager_SendWhenNotConnected(t *testing.T) {
	m := NewManager(Config{URL: "ws://127.0.0.1:1/ws/x"}, nil)
	assert.ErrorIs(t, m.Send(map[string]string{"type": "ping"}), ErrNotConnected)
	assert.Equal(t, "○ offline (closed)", m.StatusIndicator())
	m.Close()
}

func TestManager_ReconnectsAfterDrop(t *testing.T) {
	fs := newFakeServer(t)
	m := NewManager(fastConfig(fs.url()), nil)

	var statuses []Status
	var mu sync.Mutex
	m.OnStatus(func(s Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	})

	m.Start()
	defer m.Close()

	require.Eventually(t, func() bool { return m.Status() == StatusOpen }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, fs.latest().Close())

	require.Eventually(t, func() bool { return fs.accepts.Load() >= 2 && m.Status() == StatusOpen }, 3*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, statuses, StatusError)
	assert.Equal(t, StatusConnecting, statuses[0])
}

func TestManager_NoCallbacksAfterClose(t *testing.T) {
	fs := newFakeServer(t)
	m := NewManager(fastConfig(fs.url()), nil)

	var after atomic.Bool
	var closed atomic.Bool
	m.OnMessage(func(Message) {
		if closed.Load() {
			after.Store(true)
		}
	})
	m.Start()
	require.Eventually(t, func() bool { return m.Status() == StatusOpen }, 2*time.Second, 5*time.Millisecond)

	m.Close()
	closed.Store(true)

	if conn := fs.latest(); conn != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"notification"}`))
	}
	time.Sleep(50 * time.Millisecond)

	assert.False(t, after.Load())
	assert.Equal(t, StatusClosed, m.Status())
	assert.ErrorIs(t, m.Send("x"), ErrNotConnected)
	assert.Equal(t, int32(1), fs.accepts.Load())
}

func TestManager_CloseRightAfterAcceptReturnsPromptly(t *testing.T) {
	for i := 0; i < 20; i++ {
		fs := newFakeServer(t)
		m := NewManager(fastConfig(fs.url()), nil)
		m.Start()

		require.Eventually(t, func() bool { return fs.accepts.Load() >= 1 }, 2*time.Second, time.Millisecond)

		start := time.Now()
		done := make(chan struct{})
		go func() {
			m.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("iteration %d: Close still blocked after 1s (status=%s)", i, m.Status())
		}
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, StatusClosed, m.Status())
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	fs := newFakeServer(t)
	m := NewManager(fastConfig(fs.url()), nil)

	var first, second atomic.Int32
	unsubscribe := m.OnMessage(func(Message) { first.Add(1) })
	m.OnMessage(func(Message) { second.Add(1) })
	unsubscribe()

	m.Start()
	defer m.Close()
	require.Eventually(t, func() bool { return m.Status() == StatusOpen }, 2*time.Second, 5*time.Millisecond)

	fs.push(t, `{"type":"notification"}`)
	require.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff()

	b.rand = func() float64 { return 0.5 }
	assert.Equal(t, 500*time.Millisecond, b.Delay(0))
	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(3))
	assert.Equal(t, 30*time.Second, b.Delay(20))
	assert.Equal(t, 30*time.Second, b.Delay(5000))

	b.rand = func() float64 { return 0 }
	assert.Equal(t, 250*time.Millisecond, b.Delay(0))

	b.rand = func() float64 { return 0.999999 }
	assert.InDelta(t, float64(750*time.Millisecond), float64(b.Delay(0)), float64(time.Millisecond))
	assert.LessOrEqual(t, b.Delay(10), 30*time.Second)
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"admin_privileges_granted","title":"Congrats","message":"You are now an admin","notification_id":"7","data":{"request_id":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "admin_privileges_granted", msg.Type)
	assert.Equal(t, "7", msg.NotificationID)
	assert.Equal(t, "3", msg.DataString("request_id"))

	_, err = ParseMessage([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = ParseMessage([]byte(`{"type":""}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
