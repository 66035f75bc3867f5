package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadradar/cmd/mainconfig"
	"github.com/wolfman30/leadradar/internal/api/router"
	"github.com/wolfman30/leadradar/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadradar/internal/config"
	"github.com/wolfman30/leadradar/internal/database"
	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/internal/http/handlers"
	"github.com/wolfman30/leadradar/internal/leads"
	"github.com/wolfman30/leadradar/internal/notify"
	"github.com/wolfman30/leadradar/internal/observability/metrics"
	"github.com/wolfman30/leadradar/pkg/logging"
)

// stores groups the repositories behind the handlers.
type stores struct {
	forms  forms.Repository
	leads  leads.Repository
	query  leads.QueryRepository
	pinger handlers.Pinger
	close  func()
}

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadradar API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	st, err := setupStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise storage", "error", err)
		os.Exit(1)
	}
	defer st.close()

	metricsHandler, leadMetrics := setupMetrics()
	notifier := setupNotifier(ctx, cfg, logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	limiter := bootstrap.BuildLeadRateLimiter(cfg, redisClient, logger)
	if closer, ok := limiter.(interface{ Close() }); ok {
		defer closer.Close()
	}

	// Initialize handlers
	leadService := leads.NewService(st.forms, st.leads, st.query, notifier, leadMetrics, logger)
	routerCfg := &router.Config{
		Logger:             logger,
		FormsHandler:       forms.NewHandler(st.forms, logger),
		LeadsHandler:       leads.NewHandler(leadService, logger),
		HealthHandler:      handlers.NewHealthHandler(st.pinger, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LeadRateLimiter:    limiter,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupStores connects to Postgres and runs migrations when DATABASE_URL is
// set, and falls back to in-memory repositories otherwise.
func setupStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*stores, error) {
	if !cfg.UsesDatabase() {
		logger.Warn("DATABASE_URL not set; using in-memory repositories")
		formRepo := forms.NewInMemoryRepository()
		leadRepo := leads.NewInMemoryRepository(formRepo)
		return &stores{
			forms: formRepo,
			leads: leadRepo,
			query: leadRepo,
			close: func() {},
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	db, err := database.Open(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(db.SQL); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("database connected and migrated")

	return &stores{
		forms:  forms.NewPostgresRepository(db.Pool),
		leads:  leads.NewPostgresRepository(db.Pool),
		query:  leads.NewSQLQueryRepository(db.SQL),
		pinger: db.Pool,
		close:  db.Close,
	}, nil
}

// setupMetrics registers the lead metrics on a dedicated registry together
// with the Go runtime collectors.
func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	leadMetrics := metrics.NewLeadMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), leadMetrics
}

func setupNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *notify.Service {
	var ses notify.SESAPI
	if cfg.MailEnabled && cfg.MailProvider == appconfig.MailProviderSES {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
		} else {
			ses = mainconfig.NewSESClient(awsCfg, cfg)
		}
	}

	sender, provider, reason := bootstrap.BuildEmailSender(cfg, ses, logger)
	if sender == nil {
		logger.Warn("lead mail disabled", "provider", provider, "reason", reason)
	} else {
		logger.Info("lead mail enabled", "provider", provider, "notify_to_set", cfg.MailLeadsNotify != "")
	}
	return bootstrap.BuildNotifier(cfg, sender, logger)
}
