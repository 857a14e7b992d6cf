package socket

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Status of a Manager's connection.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

var ErrNotConnected = errors.New("socket is not connected")

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	queueLength = 256
)

type Config struct {
	// URL of the channel endpoint, e.g. ws://host/ws/notifications.
	URL string
	// Token is appended as ?token=. TokenSource, when set, wins and is
	// consulted on every dial.
	Token       string
	TokenSource func() string
	// Handshake, when non-nil, is sent as JSON after every successful open.
	Handshake any

	Backoff          Backoff
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

// Manager keeps one persistent connection to a channel and reconnects with
// backoff until Close. Callbacks run on a single goroutine in arrival order.
// Close must not be called from inside a callback.
type Manager struct {
	cfg    Config
	log    *zap.Logger
	dialer *websocket.Dialer

	mu         sync.Mutex
	status     Status
	conn       *websocket.Conn
	msgSubs    map[uint64]func(Message)
	statusSubs map[uint64]func(Status)
	nextID     uint64
	started    bool

	writeMu sync.Mutex

	queue      chan func()
	dispatchMu sync.Mutex
	closed     atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	runDone   chan struct{}
	stopQueue chan struct{}
	closeOnce sync.Once
}

func NewManager(cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	cfg.Backoff = cfg.Backoff.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		log:        log.With(zap.String("url", cfg.URL)),
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		status:     StatusClosed,
		msgSubs:    make(map[uint64]func(Message)),
		statusSubs: make(map[uint64]func(Status)),
		queue:      make(chan func(), queueLength),
		ctx:        ctx,
		cancel:     cancel,
		runDone:    make(chan struct{}),
		stopQueue:  make(chan struct{}),
	}
}

// Start begins connecting in the background. Calling it again is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.closed.Load() {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.dispatchLoop()
	go m.run()
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// StatusIndicator renders the status for a terminal, e.g. "● online (open)".
func (m *Manager) StatusIndicator() string {
	return Indicator(m.Status())
}

func Indicator(s Status) string {
	if s == StatusOpen {
		return "● online (" + string(s) + ")"
	}
	return "○ offline (" + string(s) + ")"
}

// OnMessage registers cb for every parsed message. The returned func removes it.
func (m *Manager) OnMessage(cb func(Message)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.msgSubs[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.msgSubs, id)
		m.mu.Unlock()
	}
}

// OnStatus registers cb for status transitions. The returned func removes it.
func (m *Manager) OnStatus(cb func(Status)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.statusSubs[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.statusSubs, id)
		m.mu.Unlock()
	}
}

// Send writes v as JSON. It fails with ErrNotConnected unless the socket is open.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	conn := m.conn
	open := m.status == StatusOpen
	m.mu.Unlock()

	if conn == nil || !open {
		return ErrNotConnected
	}
	return m.write(conn, v)
}

// Close stops reconnecting and closes the socket. Once it returns no
// callback will run.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.cancel()

		m.mu.Lock()
		started := m.started
		conn := m.conn
		m.mu.Unlock()

		if conn != nil {
			m.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			m.writeMu.Unlock()
			_ = conn.Close()
		}

		if started {
			<-m.runDone
		}

		// Wait out a callback that is running right now.
		m.dispatchMu.Lock()
		close(m.stopQueue)
		m.dispatchMu.Unlock()

		m.mu.Lock()
		m.status = StatusClosed
		m.mu.Unlock()
	})
}

func (m *Manager) run() {
	defer close(m.runDone)

	attempt := 0
	for {
		if m.ctx.Err() != nil {
			return
		}

		m.setStatus(StatusConnecting)
		conn, _, err := m.dialer.DialContext(m.ctx, m.dialURL(), nil)
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.log.Warn("socket dial failed", zap.Int("attempt", attempt), zap.Error(err))
			m.setStatus(StatusError)
			if !m.sleep(m.cfg.Backoff.Delay(attempt)) {
				return
			}
			attempt++
			continue
		}

		attempt = 0
		// Close reads m.conn after cancelling; publishing the conn under the
		// same lock as the ctx check means one side always closes it.
		m.mu.Lock()
		if m.ctx.Err() != nil {
			m.mu.Unlock()
			_ = conn.Close()
			return
		}
		m.conn = conn
		m.mu.Unlock()
		m.setStatus(StatusOpen)
		m.log.Debug("socket open")

		if m.cfg.Handshake != nil {
			if err := m.write(conn, m.cfg.Handshake); err != nil {
				m.log.Warn("socket handshake failed", zap.Error(err))
			}
		}

		err = m.readLoop(conn)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		_ = conn.Close()

		if m.ctx.Err() != nil {
			return
		}

		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			m.log.Info("socket closed by server")
			m.setStatus(StatusClosed)
		} else {
			m.log.Warn("socket connection lost", zap.Error(err))
			m.setStatus(StatusError)
		}

		if !m.sleep(m.cfg.Backoff.Delay(attempt)) {
			return
		}
		attempt++
	}
}

func (m *Manager) readLoop(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go m.pingLoop(conn, stopPing)

	// unblock ReadMessage as soon as the manager is closed
	go func() {
		select {
		case <-m.ctx.Done():
			_ = conn.Close()
		case <-stopPing:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := ParseMessage(data)
		if err != nil {
			m.log.Debug("dropping malformed socket message", zap.Error(err))
			continue
		}
		m.enqueue(func() {
			for _, cb := range m.messageSubscribers() {
				cb(msg)
			}
		})
	}
}

func (m *Manager) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			m.writeMu.Unlock()
			if err != nil {
				m.log.Debug("socket ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (m *Manager) write(conn *websocket.Conn, v any) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	m.mu.Unlock()

	m.enqueue(func() {
		for _, cb := range m.statusSubscribers() {
			cb(s)
		}
	})
}

// enqueue hands fn to the dispatch goroutine. It gives up once the manager
// is closing so the run loop can exit.
func (m *Manager) enqueue(fn func()) {
	select {
	case m.queue <- fn:
	case <-m.ctx.Done():
	}
}

func (m *Manager) dispatchLoop() {
	for {
		select {
		case fn := <-m.queue:
			m.dispatchMu.Lock()
			if !m.closed.Load() {
				fn()
			}
			m.dispatchMu.Unlock()
		case <-m.stopQueue:
			return
		}
	}
}

func (m *Manager) messageSubscribers() []func(Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(Message), 0, len(m.msgSubs))
	for id := uint64(0); id < m.nextID; id++ {
		if cb, ok := m.msgSubs[id]; ok {
			out = append(out, cb)
		}
	}
	return out
}

func (m *Manager) statusSubscribers() []func(Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(Status), 0, len(m.statusSubs))
	for id := uint64(0); id < m.nextID; id++ {
		if cb, ok := m.statusSubs[id]; ok {
			out = append(out, cb)
		}
	}
	return out
}

func (m *Manager) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-m.ctx.Done():
		return false
	}
}

func (m *Manager) dialURL() string {
	token := m.cfg.Token
	if m.cfg.TokenSource != nil {
		token = m.cfg.TokenSource()
	}
	if token == "" {
		return m.cfg.URL
	}
	sep := "?"
	if strings.Contains(m.cfg.URL, "?") {
		sep = "&"
	}
	return m.cfg.URL + sep + "token=" + url.QueryEscape(token)
}
