package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/relaydesk/inbox-pilot/internal/backend"
	"github.com/relaydesk/inbox-pilot/internal/common"
	"github.com/relaydesk/inbox-pilot/internal/export"
	"github.com/relaydesk/inbox-pilot/internal/inbox"
	"github.com/relaydesk/inbox-pilot/internal/orchestrator"
	"github.com/relaydesk/inbox-pilot/internal/server"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	// Env
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Catalog
	catalog, err := inbox.OpenCatalog(ctx, cfg.Inbox.CatalogPath, slog.Default())
	if err != nil {
		log.Fatalf("opening catalog: %v", err)
	}
	defer catalog.Close()

	// Watcher feeding the catalog
	events, watchErrs, err := inbox.StartWatcher(ctx, inbox.WatchConfig{
		Roots:       cfg.Inbox.WatchRoots,
		InitialScan: true,
		Debounce:    cfg.Inbox.Debounce,
	}, slog.Default())
	if err != nil {
		log.Fatalf("starting watcher: %v", err)
	}
	go func() {
		for {
			select {
			case path, ok := <-events:
				if !ok {
					return
				}
				if _, err := catalog.Record(ctx, path); err != nil {
					log.Warnw("recording file failed", "path", path, "error", err)
				}
			case err, ok := <-watchErrs:
				if !ok {
					return
				}
				log.Warnw("watcher error", "error", err)
			}
		}
	}()

	// Backend client and orchestrator
	router := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.DialTimeout, slog.Default())
	hub := server.NewHub(logger)
	hub.Start(ctx)

	orch := orchestrator.New(router, catalog, logger,
		orchestrator.WithEnrichTimeout(cfg.Backend.EnrichTimeout),
		orchestrator.WithEnrichRateLimit(cfg.Backend.EnrichPerMin),
		orchestrator.WithNotifier(hub),
	)

	exporter := export.NewService(catalog, orch.Snapshot, slog.Default())
	svc := server.NewService(orch, catalog, exporter, hub, cfg.Server, cfg.Inbox.PreviewBytes, logger)

	log.Infof("inboxd serving on %s", cfg.Server.Addr)
	if err := svc.Run(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
	log.Info("shutting down...")
}
