package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wanderplan/wanderplan-go/internal/config"
	"github.com/wanderplan/wanderplan-go/internal/handler"
	"github.com/wanderplan/wanderplan-go/internal/infra/cache"
	"github.com/wanderplan/wanderplan-go/internal/infra/client"
	"github.com/wanderplan/wanderplan-go/internal/infra/notify"
	"github.com/wanderplan/wanderplan-go/internal/infra/observability"
	"github.com/wanderplan/wanderplan-go/internal/infra/resilience"
	"github.com/wanderplan/wanderplan-go/internal/infra/supabase"
	"github.com/wanderplan/wanderplan-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("completion_model", cfg.CompletionModel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "wanderplan-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	tripCache := cache.New[any](cfg.CacheTTL)
	searchCache := cache.New[any](cfg.CacheTTL)
	catalogCache := cache.New[any](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	completionCB := resilience.NewCircuitBreaker("completion-engine")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	completionClient := client.NewCompletionClient(
		httpClient,
		cfg.CompletionAPIURL,
		cfg.CompletionAPIKey,
		cfg.CompletionModel,
		completionCB,
		resilienceCfg,
	)

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, logger)
	if !mailer.Enabled() {
		logger.Warn("mailer: SMTP not configured, share invites will be logged and dropped")
	}

	// --- Services ---
	tripSvc := service.NewTripService(
		supabaseClient,
		supabaseClient,
		mailer,
		tripCache,
		metrics,
		logger,
		cfg.ShareBaseURL,
		cfg.ShareLinkTTL,
		cfg.FeedPageLimit,
	)
	searchSvc := service.NewSearchService(
		completionClient,
		supabaseClient,
		supabaseClient,
		searchCache,
		metrics,
		logger,
	)
	catalogSvc := service.NewCatalogService(supabaseClient, catalogCache, metrics, logger)
	authSvc := service.NewAuthService(supabaseClient, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Maintenance job ---
	maintenance := service.NewMaintenanceJob(supabaseClient, supabaseClient, logger)
	if err := maintenance.Start(cfg.MaintenanceCron); err != nil {
		logger.Fatal("failed to schedule maintenance job", zap.Error(err))
	}
	defer maintenance.Stop()

	// --- Router ---
	router := handler.NewRouter(tripSvc, searchSvc, catalogSvc, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
