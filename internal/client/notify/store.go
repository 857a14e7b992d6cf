package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"earnaura/internal/client/api"
	"earnaura/internal/client/socket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultToastTTL  = 5 * time.Second
	DefaultMaxToasts = 5
	syncTimeout      = 10 * time.Second
)

// control frames that never become notifications
var ignoredTypes = map[string]struct{}{
	"connection_established":       {},
	"admin_connection_established": {},
	"subscribed":                   {},
	"pong":                         {},
}

type Notification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title,omitempty"`
	Message   string          `json:"message"`
	Priority  string          `json:"priority,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Read      bool            `json:"read"`
}

// Toast is a transient banner for a notification. Sticky toasts (high
// priority) stay until dismissed.
type Toast struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	Title          string    `json:"title,omitempty"`
	Message        string    `json:"message"`
	Priority       string    `json:"priority,omitempty"`
	Sticky         bool      `json:"sticky"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReadSyncer reports a first-time read to the server.
type ReadSyncer func(ctx context.Context, id string) error

type Options struct {
	ToastTTL  time.Duration
	MaxToasts int
	Syncer    ReadSyncer
	// AllSyncer mirrors MarkAllAsRead to the server.
	AllSyncer func(ctx context.Context) error
	// OnChange runs after every mutation, outside the store lock.
	OnChange func()
	Log      *zap.Logger
}

// Store holds the notification list, unread count and toasts of one session.
type Store struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	items  []Notification // newest first
	unread int
	toasts []Toast // oldest first
	timers map[string]*time.Timer
	closed bool
}

func NewStore(opts Options) *Store {
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = DefaultToastTTL
	}
	if opts.MaxToasts <= 0 {
		opts.MaxToasts = DefaultMaxToasts
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Store{opts: opts, log: opts.Log, timers: make(map[string]*time.Timer)}
}

// Add stores msg at the head of the list and shows a toast for it. Control
// frames are ignored. It reports whether msg was stored.
func (s *Store) Add(msg socket.Message) bool {
	if _, skip := ignoredTypes[msg.Type]; skip || msg.Type == "" {
		return false
	}
	// replies to a frame we sent; nothing for the user to read
	if msg.Type == "error" {
		s.log.Warn("socket error frame", zap.String("code", msg.Code), zap.String("message", msg.Message))
		return false
	}

	n := Notification{
		ID:        msg.NotificationID,
		Type:      msg.Type,
		Title:     msg.Title,
		Message:   msg.Message,
		Priority:  msg.Priority,
		Data:      msg.Data,
		Timestamp: msg.Timestamp,
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.items = append([]Notification{n}, s.items...)
	s.unread++
	s.pushToast(n)
	s.mu.Unlock()

	s.changed()
	return true
}

// pushToast must be called with s.mu held.
func (s *Store) pushToast(n Notification) {
	t := Toast{
		ID:             uuid.NewString(),
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Priority:       n.Priority,
		Sticky:         n.Priority == "high",
		CreatedAt:      time.Now(),
	}

	for len(s.toasts) >= s.opts.MaxToasts {
		s.dropToast(s.toasts[0].ID)
	}
	s.toasts = append(s.toasts, t)

	if !t.Sticky {
		id := t.ID
		s.timers[id] = time.AfterFunc(s.opts.ToastTTL, func() { s.DismissToast(id) })
	}
}

// dropToast must be called with s.mu held.
func (s *Store) dropToast(id string) bool {
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// MarkAsRead flags id as read. Only the first call for an unread
// notification lowers the count and triggers the ReadSyncer.
func (s *Store) MarkAsRead(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].Read {
			s.items[i].Read = true
			s.unread--
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return false
	}
	s.syncRead(id)
	s.changed()
	return true
}

// MarkAllAsRead flags every notification read. It calls AllSyncer once
// instead of Syncer per item.
func (s *Store) MarkAllAsRead() int {
	s.mu.Lock()
	n := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			n++
		}
	}
	s.unread = 0
	s.mu.Unlock()

	if n > 0 {
		s.syncAllRead()
		s.changed()
	}
	return n
}

func (s *Store) syncAllRead() {
	if s.opts.AllSyncer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := s.opts.AllSyncer(ctx); err != nil {
			s.log.Warn("sync read-all", zap.Error(err))
		}
	}()
}

func (s *Store) syncRead(id string) {
	if s.opts.Syncer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := s.opts.Syncer(ctx, id); err != nil {
			s.log.Warn("sync read flag", zap.String("notification_id", id), zap.Error(err))
		}
	}()
}

// ClearAll empties the list, the unread count and the toasts. Local only.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.items = nil
	s.unread = 0
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.mu.Unlock()

	s.changed()
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// List returns a copy of the notifications, newest first.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.items...)
}

// Toasts returns a copy of the visible toasts, oldest first.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast(nil), s.toasts...)
}

func (s *Store) DismissToast(id string) {
	s.mu.Lock()
	removed := s.dropToast(id)
	s.mu.Unlock()

	if removed {
		s.changed()
	}
}

// Reconcile replaces local state with the server's list. The server's read
// flags win over optimistic local ones.
func (s *Store) Reconcile(server []api.Notification) {
	items := make([]Notification, 0, len(server))
	unread := 0
	for _, sn := range server {
		n := Notification{
			ID:        strconv.FormatInt(sn.ID, 10),
			Type:      sn.Type,
			Title:     sn.Title,
			Message:   sn.Message,
			Priority:  sn.Priority,
			Timestamp: sn.CreatedAt,
			Read:      sn.IsRead,
		}
		if len(sn.Data) > 0 {
			if b, err := json.Marshal(sn.Data); err == nil {
				n.Data = b
			}
		}
		if !n.Read {
			unread++
		}
		items = append(items, n)
	}

	s.mu.Lock()
	s.items = items
	s.unread = unread
	s.mu.Unlock()

	s.changed()
}

// Close cancels pending toast timers. Later Adds are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

func (s *Store) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}

// APISyncer marks notifications read through the REST client. Ids that are
// not server ids (locally generated) are skipped.
func APISyncer(client *api.Client) ReadSyncer {
	return func(ctx context.Context, id string) error {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil
		}
		return client.MarkNotificationRead(ctx, n)
	}
}

// APIAllSyncer marks every notification read through the REST client.
func APIAllSyncer(client *api.Client) func(ctx context.Context) error {
	return client.MarkAllNotificationsRead
}
