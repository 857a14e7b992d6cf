package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"earnaura/internal/domain/realtime"

	"go.uber.org/zap"
)

// Pusher delivers a realtime event to one user's sockets.
type Pusher interface {
	ToUser(ctx context.Context, channel string, userID int64, ev realtime.Event)
}

type Service struct {
	repo Repository
	push Pusher
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, push Pusher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, push: push, log: log, now: time.Now}
}

// Notify persists a notification and then pushes it on the notifications
// channel. The push carries the row id so clients can mark it read later.
// A failed push never fails the call.
func (s *Service) Notify(ctx context.Context, userID int64, typ, title, message string, priority Priority, data map[string]any) (*Notification, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	n := &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Priority:  priority,
		Data:      data,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if s.push != nil {
		s.push.ToUser(ctx, realtime.ChannelNotifications, userID, realtime.Event{
			Type:           typ,
			Title:          title,
			Message:        message,
			Priority:       string(priority),
			NotificationID: strconv.FormatInt(n.ID, 10),
			Data:           data,
			Timestamp:      n.CreatedAt,
		})
	}

	s.log.Debug("notification created",
		zap.Int64("id", n.ID),
		zap.Int64("user_id", userID),
		zap.String("type", typ))
	return n, nil
}

// List returns a page of notifications together with the unread and total counts.
func (s *Service) List(ctx context.Context, userID int64, limit, offset int) ([]Notification, int64, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, unread, total, nil
}

func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead is idempotent: reading an already-read notification succeeds.
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	at := s.now().UTC()
	if err := s.repo.MarkAsRead(ctx, id, userID, at); err != nil {
		return nil, err
	}
	n.MarkAsRead(at)
	return n, nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID, s.now().UTC())
}

func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}
