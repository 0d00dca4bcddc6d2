// Package main is the entrypoint for the SplitRoute API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitroute/splitroute/internal/analytics"
	"github.com/splitroute/splitroute/internal/cache"
	"github.com/splitroute/splitroute/internal/config"
	"github.com/splitroute/splitroute/internal/fraud"
	"github.com/splitroute/splitroute/internal/handler"
	"github.com/splitroute/splitroute/internal/metrics"
	"github.com/splitroute/splitroute/internal/middleware"
	"github.com/splitroute/splitroute/internal/repository"
	"github.com/splitroute/splitroute/internal/server"
	"github.com/splitroute/splitroute/internal/service"
	"github.com/splitroute/splitroute/internal/store"
	"github.com/splitroute/splitroute/internal/targeting"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize counter store
	kv, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer kv.Close()
	logger.Info("connected to Redis")

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry)

	// Initialize services
	projectCache := cache.New(cfg.ProjectCacheTTL, cfg.ProjectCacheMaxEntries)
	projects := service.NewProjectService(repo, projectCache, recorder)
	aggregator := analytics.NewAggregator(kv, logger, recorder)
	resolver := service.NewResolver(
		fraud.NewLimiter(kv),
		targeting.NewEvaluator(),
		aggregator,
		cfg.FraudBlockScore,
		logger,
		recorder,
	)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, kv)
	redirectHandler := handler.NewRedirectHandler(projects, resolver, aggregator, logger)
	statsHandler := handler.NewStatsHandler(projects, aggregator, logger)

	// Setup router
	r := setupRouter(healthHandler, redirectHandler, statsHandler, registry, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"fraud_block_score", cfg.FraudBlockScore,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	healthHandler *handler.HealthHandler,
	redirectHandler *handler.RedirectHandler,
	statsHandler *handler.StatsHandler,
	registry *prometheus.Registry,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	if cfg.MetricsEnabled {
		r.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Reporting API
	r.Route("/api/v1/projects/{projectID}", func(r chi.Router) {
		r.Get("/stats", statsHandler.GetStats)
		r.Get("/abtest", statsHandler.GetABTest)
		r.Post("/conversions/{label}", statsHandler.RecordConversion)
	})

	// Redirect hot path
	r.Get("/{code}", redirectHandler.Redirect)

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
