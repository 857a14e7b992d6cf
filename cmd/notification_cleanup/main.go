package main

import (
	"context"
	"flag"
	"log"
	"time"

	"earnaura/internal/config"
	"earnaura/internal/database"
	"earnaura/internal/domain/notification"
	"earnaura/internal/pkg/logger"

	"go.uber.org/zap"
)

// One-shot purge of read notifications, for running from cron instead of the
// in-process scheduler.
func main() {
	retention := flag.Duration("retention", 0, "delete read notifications older than this (default NOTIFICATION_RETENTION)")
	flag.Parse()

	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if *retention <= 0 {
		*retention = cfg.NotificationRetention
	}

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cleanup := notification.NewCleanupService(notification.NewNotificationRepository(db), zl)
	deleted, err := cleanup.CleanupReadNotifications(ctx, *retention)
	if err != nil {
		zl.Fatal("notification cleanup failed", zap.Error(err))
	}
	zl.Info("notification cleanup completed", zap.Int64("deleted", deleted), zap.Duration("retention", *retention))
}
