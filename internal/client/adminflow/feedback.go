package adminflow

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Feedback surfaces user-facing messages. Implementations must not block.
type Feedback interface {
	Info(msg string)
	Error(msg string)
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Banner struct {
	Level Level
	Text  string
	At    time.Time
}

// BannerQueue buffers messages for a UI to render. When full the oldest
// banner is dropped.
type BannerQueue struct {
	mu      sync.Mutex
	max     int
	banners []Banner
}

func NewBannerQueue(capacity int) *BannerQueue {
	if capacity <= 0 {
		capacity = 20
	}
	return &BannerQueue{max: capacity}
}

func (q *BannerQueue) Info(msg string)  { q.push(LevelInfo, msg) }
func (q *BannerQueue) Error(msg string) { q.push(LevelError, msg) }

func (q *BannerQueue) push(level Level, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.banners) >= q.max {
		q.banners = q.banners[1:]
	}
	q.banners = append(q.banners, Banner{Level: level, Text: msg, At: time.Now()})
}

// Drain returns and removes every queued banner, oldest first.
func (q *BannerQueue) Drain() []Banner {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.banners
	q.banners = nil
	return out
}

// LogFeedback writes messages to a zap logger.
type LogFeedback struct {
	log *zap.Logger
}

func NewLogFeedback(log *zap.Logger) *LogFeedback {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogFeedback{log: log}
}

func (f *LogFeedback) Info(msg string)  { f.log.Info(msg, zap.String("feedback", "info")) }
func (f *LogFeedback) Error(msg string) { f.log.Warn(msg, zap.String("feedback", "error")) }
