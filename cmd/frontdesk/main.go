package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside-ai/frontdesk/internal/api"
	"github.com/courtside-ai/frontdesk/internal/collab"
	"github.com/courtside-ai/frontdesk/internal/config"
	"github.com/courtside-ai/frontdesk/internal/dialogue"
	"github.com/courtside-ai/frontdesk/internal/events"
	"github.com/courtside-ai/frontdesk/internal/intent"
	"github.com/courtside-ai/frontdesk/internal/memory"
	"github.com/courtside-ai/frontdesk/internal/orchestrator"
	"github.com/courtside-ai/frontdesk/internal/session"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("frontdesk starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Customer memory. Postgres when configured, otherwise profiles live
	// only as long as the process.
	var mem memory.Store
	if cfg.DatabaseURL != "" {
		pg, err := memory.NewPostgres(ctx, cfg.DatabaseURL, cfg.ProfileTTL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		mem = pg
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — customer memory is in-process only")
		mem = memory.NewInMem(cfg.ProfileTTL)
	}
	defer mem.Close()

	// NATS (optional — without it confirmations and analytics events are
	// dropped, calls still work).
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		var err error
		publisher, err = events.NewPublisher(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without event publishing")
	}

	// Intent classifier, with optional pattern file overriding the
	// baked-in table and hot reload on file change.
	table := intent.DefaultTable()
	if cfg.PatternsFile != "" {
		loaded, err := intent.LoadTable(cfg.PatternsFile)
		if err != nil {
			slog.Error("failed to load intent patterns", "file", cfg.PatternsFile, "error", err)
			os.Exit(1)
		}
		table = loaded
		slog.Info("intent patterns loaded", "file", cfg.PatternsFile)
	}
	classifier, err := intent.New(table, cfg.AmbiguityMargin)
	if err != nil {
		slog.Error("failed to compile intent patterns", "error", err)
		os.Exit(1)
	}
	if cfg.PatternsFile != "" {
		if err := intent.Watch(ctx, classifier, cfg.PatternsFile, slog.Default()); err != nil {
			slog.Error("failed to watch intent patterns", "error", err)
			os.Exit(1)
		}
	}

	policy := &dialogue.Policy{
		HighConfidence:    cfg.HighConfidence,
		MaxClarifications: cfg.MaxClarifications,
		StaffNumber:       cfg.StaffNumber,
	}

	orch := orchestrator.New(
		session.NewStore(),
		mem,
		classifier,
		policy,
		collab.NewPricing(cfg.PricingURL, cfg.CollabTimeout),
		collab.NewCalendar(cfg.CalendarURL, cfg.CollabTimeout),
		publisher,
		cfg.CollabTimeout,
		slog.Default(),
	)

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, orch, mem, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Janitor: evict idle calls and purge expired profiles.
	go janitor(ctx, orch, mem, cfg.IdleTimeout)

	slog.Info("frontdesk ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("frontdesk stopped")
}

func janitor(ctx context.Context, orch *orchestrator.Orchestrator, mem memory.Store, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := orch.EvictIdle(ctx, idle); n > 0 {
				slog.Info("evicted idle sessions", "count", n)
			}
			if pg, ok := mem.(*memory.Postgres); ok {
				if n, err := pg.PurgeExpired(ctx); err != nil {
					slog.Warn("profile purge failed", "error", err)
				} else if n > 0 {
					slog.Info("purged expired profiles", "count", n)
				}
			}
		}
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
