// CAPINTEL - role-conditioned explanations for frozen risk decisions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/capintel/internal/api"
	"github.com/opensource-finance/capintel/internal/bus"
	"github.com/opensource-finance/capintel/internal/cache"
	"github.com/opensource-finance/capintel/internal/domain"
	"github.com/opensource-finance/capintel/internal/explain"
	"github.com/opensource-finance/capintel/internal/llm"
	"github.com/opensource-finance/capintel/internal/repository"
	"github.com/opensource-finance/capintel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration. A missing API credential is fatal at startup,
	// never a per-request error.
	cfg, err := domain.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	slog.Info("starting capintel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"model", cfg.LLM.Model,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"async_audit", cfg.AsyncAudit,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize the text generation client. It is the single shared
	// handle across all requests and holds no per-request state.
	llmClient := llm.NewClient(cfg.LLM)
	slog.Info("text generation client initialized",
		"base_url", cfg.LLM.BaseURL,
		"model", cfg.LLM.Model,
		"timeout_seconds", cfg.LLM.TimeoutSeconds,
	)

	// Initialize the explanation service
	svc := explain.NewService(llmClient, repo, busImpl, cfg.AsyncAudit)

	// Start the audit worker when persistence is moved off the request path
	var auditWorker *worker.AuditWorker
	if cfg.AsyncAudit {
		auditWorker = worker.NewAuditWorker(busImpl, repo)
		if err := auditWorker.Start(); err != nil {
			slog.Error("failed to start audit worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, svc, repo, cacheImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("capintel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if auditWorker != nil {
		if err := auditWorker.Stop(); err != nil {
			slog.Error("failed to stop audit worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("capintel shutdown complete")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
