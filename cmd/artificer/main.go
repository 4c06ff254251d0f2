// Command artificer runs the tool resolution and execution engine: an HTTP
// service that matches free-text intents to registry tools, optionally
// generates missing tools through an LLM gateway, and executes them on
// per-language backends.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/artificer-dev/artificer/internal/adapter/http"
	"github.com/artificer-dev/artificer/internal/adapter/litellm"
	"github.com/artificer-dev/artificer/internal/adapter/mcp"
	_ "github.com/artificer-dev/artificer/internal/adapter/native"
	otelx "github.com/artificer-dev/artificer/internal/adapter/otel"
	"github.com/artificer-dev/artificer/internal/adapter/postgres"
	"github.com/artificer-dev/artificer/internal/adapter/ristretto"
	_ "github.com/artificer-dev/artificer/internal/adapter/script"
	_ "github.com/artificer-dev/artificer/internal/adapter/shell"
	"github.com/artificer-dev/artificer/internal/config"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/logger"
	"github.com/artificer-dev/artificer/internal/middleware"
	"github.com/artificer-dev/artificer/internal/port/toolbackend"
	"github.com/artificer-dev/artificer/internal/resilience"
	"github.com/artificer-dev/artificer/internal/service"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auto_approve", cfg.Generator.AutoApprove,
		"executor_timeout", cfg.Executor.Timeout,
	)

	ctx := context.Background()

	// --- Telemetry ---
	if cfg.OTel.Enabled {
		shutdown, err := otelx.Setup(ctx, cfg.Logging.Service, version, cfg.OTel.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	// --- Storage ---
	if err := postgres.RunMigrations(cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	store := postgres.NewStore(pool)

	candidateCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer candidateCache.Close()

	// --- Chat gateway ---
	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	gateway := litellm.NewChatGateway(llmClient, cfg.Generator.Model, cfg.Generator.MaxTokens)

	// --- Execution backends ---
	backendOpts := toolbackend.Options{
		Timeout: cfg.Executor.Timeout,
		Python:  cfg.Executor.Python,
		Shell:   cfg.Executor.Shell,
	}
	backends := make(map[tool.Language]toolbackend.Backend)
	for _, lang := range toolbackend.Available() {
		b, err := toolbackend.New(lang, backendOpts)
		if err != nil {
			return fmt.Errorf("backend %s: %w", lang, err)
		}
		backends[lang] = b
	}
	log.Info("backends registered", "languages", toolbackend.Available())

	// --- Services ---
	registry := service.NewRegistry(store, candidateCache, cfg.Cache.TTL, log)
	resolver := service.NewResolver(registry, log)
	generator := service.NewGenerator(gateway, registry, cfg.Generator.AutoApprove, log)

	var metrics service.Metrics
	if cfg.OTel.Enabled {
		m, err := otelx.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics = m
	}
	orchestrator := service.NewOrchestrator(resolver, generator, registry, backends, metrics, log)

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	handlers := httpadapter.NewHandlers(orchestrator, registry, pool, log, 1<<20)
	routerCfg := httpadapter.RouterConfig{
		AllowedOrigin: cfg.Server.CORSOrigin,
		APIKeyHashes:  cfg.Auth.APIKeyHashes,
		RateLimiter:   limiter,
	}
	if cfg.OTel.Enabled {
		routerCfg.Instrument = otelx.HTTPMiddleware(cfg.Logging.Service)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpadapter.NewRouter(handlers, routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Write timeout sits above the executor timeout so a full-length
		// tool run can still deliver its response.
		WriteTimeout: cfg.Executor.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- MCP ---
	var mcpServer *mcp.Server
	if cfg.MCP.Enabled {
		mcpServer = mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    cfg.Logging.Service,
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{
			Tools:   registry,
			Runner:  orchestrator,
			History: registry,
		}, log)
		if err := mcpServer.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
	}

	// --- Serve until signalled ---
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mcpServer != nil {
		_ = mcpServer.Stop(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}
