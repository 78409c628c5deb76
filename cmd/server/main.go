package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/gorilla/handlers"

	"github.com/etabench/etabench/internal/api"
	"github.com/etabench/etabench/internal/catalog"
	"github.com/etabench/etabench/internal/config"
	"github.com/etabench/etabench/internal/metrics"
	"github.com/etabench/etabench/internal/store"
	"github.com/etabench/etabench/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("etabench-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"mongo_db", cfg.Server.Mongo.Database,
		"threshold_pct", cfg.Server.Pipeline.ThresholdPct,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Current config behind an atomic pointer so hot reloads reach every
	// per-request read without a restart.
	var current atomic.Pointer[config.Config]
	current.Store(cfg)
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			current.Store(next)
		})
		if err != nil {
			slog.Error("config watch failed", "err", err)
		}
	}()

	// Document store. A down Mongo is not fatal: CSV uploads and catalog
	// analysis keep working, store-backed routes answer 503.
	var finder api.RecordFinder
	mongoCfg := cfg.Server.Mongo
	db, err := store.Connect(ctx, mongoCfg.EffectiveURI(), mongoCfg.Database, mongoCfg.Collection)
	if err != nil {
		slog.Warn("document store unavailable, continuing without it", "err", err)
	} else {
		finder = db
		defer db.Close(context.Background()) //nolint:errcheck
		slog.Info("document store connected", "collection", db.Collection())
	}

	cat := catalog.New()
	met := metrics.New()

	apiHandler := api.New(api.Options{
		Finder:            finder,
		Catalog:           cat,
		Metrics:           met,
		Threshold:         func() float64 { return current.Load().Server.Pipeline.ThresholdPct },
		DefaultComparison: cfg.Server.Pipeline.Comparison(),
		AuthMode:          cfg.Server.Auth.Mode,
		AuthHeader:        cfg.Server.Auth.EffectiveHeader(),
		AuthKey:           func() string { return current.Load().Server.Auth.Key() },
	})

	// WebSocket hub — broadcasts the merged analysis to UI clients.
	hub := ws.New(cat, cfg.Server.Pipeline.Comparison(), cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", met.WrapHandler("api", apiHandler))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", met.Handler())

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", cfg.Server.Auth.EffectiveHeader()}),
	)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: handlers.LoggingHandler(os.Stdout, cors(httpMux)),
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("etabench-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
