package notification

import (
	"time"
)

// Priority controls how long a client keeps the notification on screen.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Notification is a persisted user notification. Type mirrors the realtime
// event type that announced it.
type Notification struct {
	ID        int64          `gorm:"primaryKey;column:id" json:"id"`
	UserID    int64          `gorm:"column:user_id;not null;index:idx_notifications_user_unread" json:"user_id"`
	Type      string         `gorm:"column:type;not null" json:"type"`
	Title     string         `gorm:"column:title" json:"title"`
	Message   string         `gorm:"column:message;not null" json:"message"`
	Priority  Priority       `gorm:"column:priority;default:medium" json:"priority"`
	Data      map[string]any `gorm:"column:data;serializer:json;type:text" json:"data,omitempty"`
	IsRead    bool           `gorm:"column:is_read;index:idx_notifications_user_unread" json:"is_read"`
	ReadAt    *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

// TableName specifies table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// MarkAsRead marks notification as read with timestamp
func (n *Notification) MarkAsRead(at time.Time) {
	n.IsRead = true
	n.ReadAt = &at
}
