// Package main provides the asset intelligence server entry point. The
// server hosts the entity, graph, ingestion, and GRC APIs in a single
// process, with the normalization worker pool running in the background.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cisoworks/asset-intelligence/internal/config"
	"github.com/cisoworks/asset-intelligence/internal/db"
	"github.com/cisoworks/asset-intelligence/internal/server"
	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/graph"
	"github.com/cisoworks/asset-intelligence/pkg/grc"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
	"github.com/cisoworks/asset-intelligence/pkg/normalize"
	"github.com/cisoworks/asset-intelligence/pkg/tenancy"

	// Import connectors and normalizers - their init() registers them
	_ "github.com/cisoworks/asset-intelligence/connectors/manual"
	_ "github.com/cisoworks/asset-intelligence/normalizers/okta"
	_ "github.com/cisoworks/asset-intelligence/normalizers/servicenow"
)

func main() {
	var (
		configPath string
		listenAddr string
		dbType     string
		dbDSN      string
	)

	flag.StringVar(&configPath, "config", "", "Path to server config file")
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.StringVar(&dbType, "db-type", "", "Database type (postgres, mysql, sqlite; overrides config)")
	flag.StringVar(&dbDSN, "db-dsn", "", "Database connection string (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(logger, "failed to load config", err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbType != "" {
		cfg.Database.Type = dbType
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}

	logger.Info("starting intelgraph server",
		"listen", cfg.Listen,
		"database", cfg.Database.Type,
		"connectors", len(cfg.Connectors),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := db.Connect(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}

	registry := entity.NewRegistry(gormDB)
	resolver := entity.NewResolver(gormDB)
	graphStore := graph.NewStore(gormDB)
	ingestStore := ingest.NewStore(gormDB)
	grcStore := grc.NewStore(gormDB)
	tenantStore := tenancy.NewStore(gormDB)

	for name, migrate := range map[string]func() error{
		"entities":     registry.AutoMigrate,
		"external IDs": resolver.AutoMigrate,
		"graph":        graphStore.AutoMigrate,
		"ingest":       ingestStore.AutoMigrate,
		"grc":          grcStore.AutoMigrate,
		"tenancy":      tenantStore.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			fatal(logger, "failed to migrate "+name, err)
		}
	}

	features := tenancy.NewFeatureService(tenantStore, cfg.Features)
	ingester := ingest.NewIngester(ingestStore, logger)

	// Normalization worker pool
	if cfg.Normalize.Enabled {
		normCfg := &normalize.Config{
			Concurrency:  cfg.Normalize.Concurrency,
			PollInterval: cfg.PollInterval(),
			ClaimTimeout: cfg.ClaimTimeout(),
			Enabled:      true,
		}
		env := normalize.NewEnv(registry, resolver, graphStore, logger)
		pipeline := normalize.NewPipeline(env, ingestStore, normCfg, logger)
		pool := normalize.NewWorkerPool(pipeline, normCfg, logger)
		go pool.Run(ctx)
		logger.Info("normalization workers started",
			"concurrency", normCfg.Concurrency,
			"pollInterval", normCfg.PollInterval,
		)
	} else {
		logger.Info("normalization workers disabled")
	}

	srv := server.New(server.Options{
		Registry:   registry,
		Resolver:   resolver,
		Graph:      graphStore,
		Ingest:     ingestStore,
		Ingester:   ingester,
		GRC:        grcStore,
		Tenants:    tenantStore,
		Features:   features,
		Connectors: cfg.Connectors,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("intelgraph server ready", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(logger, "HTTP server error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
