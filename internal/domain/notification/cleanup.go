package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CleanupService removes read notifications that are past retention.
type CleanupService struct {
	repo Repository
	log  *zap.Logger
}

func NewCleanupService(repo Repository, log *zap.Logger) *CleanupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupService{repo: repo, log: log}
}

// CleanupConfig holds configuration for cleanup tasks
type CleanupConfig struct {
	Retention       time.Duration // keep read notifications this long (default 90 days)
	CleanupInterval time.Duration // how often to run (default 24h)
	Enabled         bool
}

// DefaultCleanupConfig returns default cleanup configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Retention:       90 * 24 * time.Hour,
		CleanupInterval: 24 * time.Hour,
		Enabled:         true,
	}
}

// CleanupReadNotifications deletes read notifications created before now-retention.
// Unread notifications are never removed.
func (c *CleanupService) CleanupReadNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	start := time.Now()

	deleted, err := c.repo.DeleteReadOlderThan(ctx, start.Add(-retention).UTC())
	if err != nil {
		c.log.Error("notification cleanup failed", zap.Error(err))
		return 0, err
	}

	c.log.Info("notification cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Duration("took", time.Since(start)))
	return deleted, nil
}

// ScheduleCleanup starts a background goroutine for periodic cleanup. Closing
// the returned channel or cancelling ctx stops it. Returns nil when disabled.
func (c *CleanupService) ScheduleCleanup(ctx context.Context, config CleanupConfig) chan struct{} {
	if !config.Enabled || config.CleanupInterval <= 0 {
		c.log.Info("automatic notification cleanup is disabled")
		return nil
	}

	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = c.CleanupReadNotifications(ctx, config.Retention)
			case <-stopCh:
				c.log.Info("scheduled cleanup stopped")
				return
			case <-ctx.Done():
				c.log.Info("scheduled cleanup stopped", zap.Error(ctx.Err()))
				return
			}
		}
	}()

	c.log.Info("scheduled cleanup started", zap.Duration("interval", config.CleanupInterval))
	return stopCh
}
