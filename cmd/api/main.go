package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/api"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/authenticity"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/config"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/database"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/decision"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/events"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/extraction"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/history"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/metrics"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/repository"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/risk"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/service"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/validation"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/workflow"
)

// visionBackend is what the pipeline needs from a provider.
type visionBackend interface {
	provider.VisionProvider
	provider.TextDetector
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting IDCheck API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	verificationRepo := repository.NewVerificationRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)

	auditLogger := audit.MultiLogger{
		audit.NewSlogLogger(logger),
		audit.NewStoreLogger(auditRepo),
	}

	// Vision provider
	vision, err := newVisionBackend(ctx, cfg, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create vision provider: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	aggregator := metrics.NewAggregator(verificationRepo, m, logger, time.Minute)
	go aggregator.Start(ctx)
	defer aggregator.Stop()

	// Verification pipeline
	orchestrator := workflow.New(
		vision,
		extraction.NewExtractor(vision, extraction.DefaultRegistry(), logger),
		logger,
		workflow.WithSteps(workflow.DefaultSteps(cfg.StepTimeout, cfg.StepRetryCount)...),
		workflow.WithScorer(authenticity.NewScorer()),
		workflow.WithValidator(validation.NewFieldValidator()),
		workflow.WithAggregator(risk.NewAggregator(risk.WithTechnicalThresholds(risk.TechnicalThresholds{
			SlowFacial:           cfg.TechSlowFacial,
			SlowOCR:              cfg.TechSlowOCR,
			MinAverageConfidence: cfg.TechMinAvgConfidence,
		}))),
		workflow.WithEngine(decision.NewEngine(decision.DefaultRules()...)),
		workflow.WithFaceMatchThreshold(cfg.FaceMatchThreshold),
		workflow.WithMetrics(m),
		workflow.WithAuditLogger(auditLogger),
	)

	checks := []handler.Check{{Name: "database", Fn: func(ctx context.Context) error {
		return database.HealthCheck(ctx, pool)
	}}}

	// User history
	historyOpts := []history.Option{history.WithDuplicateThreshold(cfg.DuplicateFaceThreshold)}
	if embedder, ok := vision.(provider.FaceEmbedder); ok {
		historyOpts = append(historyOpts, history.WithFaceEmbedder(embedder))
	}

	redisClient, err := history.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		historyOpts = append(historyOpts, history.WithAttemptTracker(history.NewRedisAttemptTracker(redisClient, 0)))
		checks = append(checks, handler.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		logger.Info("attempt tracking backed by redis")
	}

	serviceOpts := []service.Option{
		service.WithHistoryLoader(history.NewLoader(verificationRepo, logger, historyOpts...)),
		service.WithAuditTrail(auditRepo),
		service.WithAuditLogger(auditLogger),
	}

	// Decision events
	if cfg.AMQPURL != "" {
		conn, err := events.Dial(cfg.AMQPURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer func() { _ = conn.Close() }()

		publisher, err := events.NewPublisher(conn.Channel(), cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		serviceOpts = append(serviceOpts, service.WithPublisher(publisher))
		checks = append(checks, handler.Check{Name: "rabbitmq", Fn: func(context.Context) error {
			if !conn.Healthy() {
				return fmt.Errorf("connection closed")
			}
			return nil
		}})
	}

	verificationService := service.NewVerificationService(verificationRepo, orchestrator, logger, serviceOpts...)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Service:      verificationService,
		HealthChecks: checks,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		SubmitLimit: middleware.RateLimiterConfig{
			Max:    cfg.SubmitRateLimit,
			Window: cfg.SubmitRateWindow,
		},
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- router.Shutdown() }()

	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}

func newVisionBackend(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (visionBackend, error) {
	switch cfg.ProviderType {
	case "rekognition":
		return rekognition.NewProvider(ctx, rekognition.Config{
			Region:              cfg.AWSRegion,
			SimilarityThreshold: cfg.FaceMatchThreshold,
			LivenessThreshold:   cfg.LivenessThreshold,
		}, rekognition.WithAuditLogger(auditLogger))
	default:
		return mock.New(mock.WithLivenessThreshold(cfg.LivenessThreshold)), nil
	}
}
