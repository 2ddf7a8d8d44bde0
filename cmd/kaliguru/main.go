package main

//	@title						KaliGuru API
//	@version					0.1.0
//	@description				Cybersecurity mentoring gateway API.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/kaliguru/kaliguru/api/swagger"
	"github.com/kaliguru/kaliguru/internal/assess"
	"github.com/kaliguru/kaliguru/internal/auth"
	"github.com/kaliguru/kaliguru/internal/chat"
	"github.com/kaliguru/kaliguru/internal/config"
	"github.com/kaliguru/kaliguru/internal/corpus"
	"github.com/kaliguru/kaliguru/internal/event"
	"github.com/kaliguru/kaliguru/internal/gateway"
	"github.com/kaliguru/kaliguru/internal/registry"
	"github.com/kaliguru/kaliguru/internal/roadmap"
	"github.com/kaliguru/kaliguru/internal/server"
	"github.com/kaliguru/kaliguru/internal/store"
	"github.com/kaliguru/kaliguru/internal/version"
	"github.com/kaliguru/kaliguru/internal/ws"
	"github.com/kaliguru/kaliguru/pkg/plugin"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("KaliGuru server starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Open database
	dsn := viperCfg.GetString("database.dsn")
	if dsn == "" {
		dsn = "kaliguru.db"
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Fatal("failed to create data directory", zap.Error(err))
		}
	}
	db, err := store.New(dsn)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CheckVersion(context.Background(), version.Short()); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("dsn", dsn),
	)

	// Shared services
	bus := event.NewBus(logger.Named("event"))

	resources, err := corpus.Load()
	if err != nil {
		logger.Fatal("failed to load resource corpus", zap.Error(err))
	}
	logger.Info("resource corpus loaded",
		zap.String("component", "corpus"),
		zap.Int("links", len(resources.All())),
	)

	// Upstream completion gateway. Shared by every module that talks
	// to the model so that retries and the deadline budget are applied
	// uniformly.
	gwCfg := gateway.LoadConfig(cfg.Sub("gateway"))
	gwClient := gateway.NewClient(gwCfg, logger.Named("gateway"))
	orch := gateway.NewOrchestrator(gwCfg, gwClient, logger.Named("gateway"), bus)
	if gwCfg.APIKey == "" {
		logger.Warn("no upstream API key configured; callers must supply X-Api-Key",
			zap.String("component", "gateway"),
		)
	}

	// Plugin registry (compile-time composition)
	reg := registry.New(logger.Named("registry"))
	modules := []plugin.Plugin{
		chat.New(orch),
		assess.New(orch),
		roadmap.New(orch, resources),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Fatal("failed to register module", zap.Error(err))
		}
	}

	if err := reg.Validate(); err != nil {
		logger.Fatal("module validation failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config:  cfg.Sub("modules." + name),
			Logger:  logger.Named(name),
			Store:   db,
			Bus:     bus,
			Plugins: reg,
		}
	}); err != nil {
		logger.Fatal("failed to initialize modules", zap.Error(err))
	}

	if err := reg.StartAll(ctx); err != nil {
		logger.Fatal("failed to start modules", zap.Error(err))
	}

	// Auth service
	authStore, err := auth.NewUserStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize auth store", zap.Error(err))
	}

	jwtSecret := viperCfg.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		// Generate an ephemeral secret -- tokens won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate JWT secret", zap.Error(err))
		}
		jwtSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated JWT secret (set auth.jwt_secret in config to persist sessions across restarts)",
			zap.String("component", "auth"),
		)
	}

	accessTTL := viperCfg.GetDuration("auth.access_token_ttl")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := viperCfg.GetDuration("auth.refresh_token_ttl")
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	tokens := auth.NewTokenService([]byte(jwtSecret), accessTTL, refreshTTL)
	authService := auth.NewService(authStore, tokens, logger.Named("auth"))
	var authHandler server.RouteRegistrar
	if viperCfg.GetBool("auth.enabled") {
		authHandler = auth.NewHandler(authService, logger.Named("auth"))
		logger.Info("auth service initialized",
			zap.String("component", "auth"),
			zap.Duration("access_token_ttl", accessTTL),
			zap.Duration("refresh_token_ttl", refreshTTL),
		)
	} else {
		logger.Warn("authentication disabled; history and persistence endpoints are unavailable",
			zap.String("component", "auth"),
		)
	}

	// Revoked and expired refresh tokens accumulate; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := authStore.CleanExpiredTokens(ctx); err != nil {
					logger.Warn("token cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	// WebSocket handler for live gateway telemetry
	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))

	// Create and start HTTP server
	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	devMode := viperCfg.GetBool("server.dev_mode")
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, reg, logger, readyCheck, authHandler, devMode, wsHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("KaliGuru server ready", zap.String("addr", addr))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	reg.StopAll(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("KaliGuru server stopped")
}
