package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jbaudry/previsk/internal"
	"github.com/jbaudry/previsk/internal/ai"
	"github.com/jbaudry/previsk/internal/ai/anthropic"
	"github.com/jbaudry/previsk/internal/ai/mock"
	"github.com/jbaudry/previsk/internal/billing"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/email"
	"github.com/jbaudry/previsk/internal/handler"
	"github.com/jbaudry/previsk/internal/invite"
	"github.com/jbaudry/previsk/internal/jobs"
	"github.com/jbaudry/previsk/internal/metrics"
	"github.com/jbaudry/previsk/internal/middleware"
	"github.com/jbaudry/previsk/internal/repository"
	"github.com/jbaudry/previsk/internal/service"
	"github.com/jbaudry/previsk/internal/storage"
	"github.com/jbaudry/previsk/internal/worker"
)

// sessionCleanupInterval controls how often expired sessions are purged.
const sessionCleanupInterval = 1 * time.Hour

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	queries := repository.New(db)

	// Plan catalog: quota limits and feature gates per plan
	catalog := domain.DefaultCatalog()

	// ==========================================================================
	// Infrastructure: storage, email, AI, billing
	// ==========================================================================

	files, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	emailService, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, "web/templates/email", logger)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	aiProvider, err := newAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("AI provider initialization failed: %w", err)
	}
	logger.Info("AI provider ready", "provider", cfg.AIProvider)

	// Billing is optional: without a Stripe key the billing endpoints answer 503.
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			StarterMonthlyPriceID:    cfg.StripeStarterMonthlyPriceID,
			StarterYearlyPriceID:     cfg.StripeStarterYearlyPriceID,
			BusinessMonthlyPriceID:   cfg.StripeBusinessMonthlyPriceID,
			BusinessYearlyPriceID:    cfg.StripeBusinessYearlyPriceID,
			PremiumMonthlyPriceID:    cfg.StripePremiumMonthlyPriceID,
			PremiumYearlyPriceID:     cfg.StripePremiumYearlyPriceID,
			EntrepriseMonthlyPriceID: cfg.StripeEntrepriseMonthlyPriceID,
			EntrepriseYearlyPriceID:  cfg.StripeEntrepriseYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled: STRIPE_SECRET_KEY not set")
	}

	// Invite code gate (private beta)
	var invites *invite.Validator
	if cfg.InviteCodesEnabled {
		invites = invite.New(true, cfg.ValidInviteCodes)
		logger.Info("Invite codes enabled", "count", len(cfg.ValidInviteCodes))
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	quotaService := service.NewQuotaService(queries, catalog, logger)
	userService := service.NewUserService(db, queries, quotaService, catalog, service.UserServiceConfig{}, logger)
	orgService := service.NewOrganizationService(queries, quotaService, logger)
	evaluationService := service.NewEvaluationService(queries, quotaService, catalog, logger)
	actionService := service.NewActionService(queries, quotaService, logger)
	observationService := service.NewObservationService(queries, quotaService, files, logger)
	conformiteService := service.NewConformiteService(queries, logger)
	suggestionService := service.NewSuggestionService(queries, quotaService, aiProvider, catalog, logger)
	exportService := service.NewExportService(queries, quotaService, files, catalog, logger)
	importService := service.NewImportService(queries, quotaService, catalog, logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout
		jobWorker, err = worker.New(db, queries, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobWorker.Register(jobs.NewGenerateExportHandler(queries, files, emailService, logger, cfg.BaseURL))
		jobWorker.Register(jobs.NewGenerateThumbnailHandler(queries, files, service.NewImagingProcessor(), logger))
		jobWorker.Start(ctx)
		logger.Info("Worker started", "concurrency", cfg.WorkerConcurrency)
	} else {
		logger.Warn("Worker disabled: exports and thumbnails will stay queued")
	}

	// Periodic session cleanup
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := userService.DeleteExpiredSessions(ctx); err != nil {
					logger.Error("Session cleanup failed", "error", err)
				}
			case <-cleanupDone:
				return
			}
		}
	}()

	// ==========================================================================
	// Middleware and handlers
	// ==========================================================================

	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	authRateLimiter := middleware.NewAuthRateLimiter(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	api := handler.Routes(handler.Handlers{
		Auth:          handler.NewAuthHandler(userService, emailService, invites, authRateLimiter, logger, isSecure),
		Member:        handler.NewMemberHandler(userService, logger),
		Organization:  handler.NewOrganizationHandler(orgService, logger),
		Evaluation:    handler.NewEvaluationHandler(evaluationService, logger),
		Action:        handler.NewActionHandler(actionService, logger),
		Observation:   handler.NewObservationHandler(observationService, logger),
		Conformite:    handler.NewConformiteHandler(conformiteService, logger),
		Suggestion:    handler.NewSuggestionHandler(suggestionService, logger),
		Export:        handler.NewExportHandler(exportService, logger),
		Import:        handler.NewImportHandler(importService, logger),
		Usage:         handler.NewUsageHandler(queries, quotaService, catalog, logger),
		Billing:       handler.NewBillingHandler(billingService, queries, logger, cfg.BaseURL),
		Webhook:       handler.NewWebhookHandler(billingService, queries, logger),
		AuthMW:        authMw,
		AuthRateLimit: authRateLimiter,
	})

	mux := http.NewServeMux()
	mux.Handle("/", api)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics, behind basic auth when credentials are configured
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Serve uploaded files directly when using local storage (development)
	if cfg.StorageProvider == "local" {
		fileServer := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", fileServer))
	}

	root := securityHeaders.Handler(requestLogging.Handler(metrics.Middleware(mux)))

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	close(cleanupDone)

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Let in-flight jobs finish after the HTTP server stops accepting work
	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the configured storage backend.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == "r2" {
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	}
	return storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// newAIProvider builds the configured suggestion provider.
func newAIProvider(cfg *internal.Config, logger *slog.Logger) (ai.AIProvider, error) {
	if cfg.AIProvider == "anthropic" {
		return anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
	}
	return mock.New(logger), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
