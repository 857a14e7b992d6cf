package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"earnaura/internal/client/adminflow"
	"earnaura/internal/client/api"
	"earnaura/internal/client/notify"
	"earnaura/internal/client/socket"
	"earnaura/internal/config"
	"earnaura/internal/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "", "directory containing notifywatch.yaml")
	flag.Parse()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.LoadClient(paths...)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	client := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout, zl)

	if _, err := client.Me(rootCtx); err != nil {
		zl.Error("backend rejected token", zap.String("reason", api.UserMessage(err)))
		os.Exit(1)
	}

	registry := socket.NewRegistry(func(channel string) *socket.Manager {
		return socket.NewManager(socket.Config{
			URL:         client.WebSocketURL(channel),
			TokenSource: client.Token,
			Handshake:   map[string]string{"type": "subscribe", "channel": channel},
			Backoff: socket.Backoff{
				Base:   cfg.Socket.BaseDelay,
				Max:    cfg.Socket.MaxDelay,
				Factor: 2,
				Jitter: 0.5,
			},
			HandshakeTimeout: cfg.Socket.HandshakeTimeout,
		}, zl.With(zap.String("channel", channel)))
	})
	defer registry.Close()

	feedback := adminflow.NewLogFeedback(zl)

	store := notify.NewStore(notify.Options{
		ToastTTL:  cfg.Toasts.TTL,
		MaxToasts: cfg.Toasts.Max,
		Syncer:    notify.APISyncer(client),
		AllSyncer: notify.APIAllSyncer(client),
		Log:       zl,
	})
	defer store.Close()

	workflow := adminflow.NewWorkflow(client, feedback, adminflow.Options{
		Debounce: cfg.Refetch.Debounce,
		Log:      zl,
		OnChange: func(v adminflow.View) {
			zl.Info("admin request", zap.String("state", string(v.State)), zap.String("badge", v.Badge))
		},
	})
	defer workflow.Close()

	var reviewer *adminflow.Reviewer
	if slices.Contains(cfg.Channels, "admin") {
		reviewer = adminflow.NewReviewer(client, feedback, adminflow.ReviewerOptions{
			StatusFilter: "pending",
			Debounce:     cfg.Refetch.Debounce,
			Log:          zl,
			OnChange: func(reqs []api.AdminRequest) {
				zl.Info("review queue", zap.Int("requests", len(reqs)))
			},
		})
		defer reviewer.Close()
	}

	loadCtx, cancel := context.WithTimeout(rootCtx, cfg.Backend.Timeout)
	if list, err := client.Notifications(loadCtx, 50, 0); err == nil {
		store.Reconcile(list.Notifications)
	} else {
		feedback.Error("Could not load notifications: " + api.UserMessage(err))
	}
	_ = workflow.Refresh(loadCtx)
	if reviewer != nil {
		_ = reviewer.Refresh(loadCtx)
	}
	cancel()

	for _, channel := range cfg.Channels {
		manager, release := registry.Acquire(channel)
		defer release()

		manager.OnStatus(func(s socket.Status) {
			zl.Info("socket "+socket.Indicator(s), zap.String("channel", channel))
			// a reconnect may have missed pushes
			if s == socket.StatusOpen {
				workflow.RequestRefresh()
				if reviewer != nil {
					reviewer.RequestRefresh()
				}
			}
		})
		manager.OnMessage(func(msg socket.Message) {
			if store.Add(msg) {
				zl.Info("notification",
					zap.String("title", msg.Title),
					zap.String("message", msg.Message),
					zap.Int("unread", store.UnreadCount()))
			}
			workflow.HandlePush(msg)
			if reviewer != nil {
				reviewer.HandlePush(msg)
			}
		})
	}

	zl.Info("notifywatch started",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Strings("channels", cfg.Channels))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	zl.Info("shutdown signal received", zap.String("signal", sig.String()))
	rootCancel()

	done := make(chan struct{})
	go func() {
		registry.Close()
		close(done)
	}()
	select {
	case <-done:
		zl.Info("graceful shutdown complete")
	case <-time.After(10 * time.Second):
		zl.Warn("shutdown timeout exceeded, forcing exit")
	}
}
