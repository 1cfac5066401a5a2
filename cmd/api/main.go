package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tupi-labs/ponto/internal/api"
	"github.com/tupi-labs/ponto/internal/config"
	"github.com/tupi-labs/ponto/internal/database"
	"github.com/tupi-labs/ponto/internal/engine"
	"github.com/tupi-labs/ponto/internal/events"
	"github.com/tupi-labs/ponto/internal/extractor"
	"github.com/tupi-labs/ponto/internal/liveness"
	"github.com/tupi-labs/ponto/internal/matcher"
	"github.com/tupi-labs/ponto/internal/repository"
	"github.com/tupi-labs/ponto/internal/storage"
)

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
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting Ponto API",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.Port),
		slog.String("extractor", cfg.ExtractorType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	employeeRepo := repository.NewEmployeeRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool, cfg.EmbeddingDim)
	attendanceRepo := repository.NewAttendanceRepository(pool)

	// Extraction pipeline
	ext, err := extractor.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}
	if ext.Dim() != cfg.EmbeddingDim {
		return fmt.Errorf("extractor %q produces %d-dim embeddings but EMBEDDING_DIM is %d",
			cfg.ExtractorType, ext.Dim(), cfg.EmbeddingDim)
	}

	// Matcher snapshot over the enrolled templates
	m := matcher.New(templateRepo, matcher.Options{
		DistanceThreshold: cfg.MatchDistanceThreshold,
		UseHNSW:           cfg.MatcherIndex == "hnsw",
	}, logger)
	if err := m.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load enrolled templates: %w", err)
	}

	// Liveness fusion
	live := liveness.Default(
		cfg.BlinkEARThreshold,
		cfg.TextureThreshold,
		cfg.MotionMinDisplacement,
		cfg.MotionMaxDisplacement,
		cfg.LivenessFramesRequired,
		cfg.LivenessQuorum,
		logger,
	)

	// Evidence storage is optional
	var evidence storage.EvidenceStore = storage.Disabled{}
	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to evidence store: %w", err)
		}
		evidence = store
	}

	// Event publishing is optional
	var publisher events.Publisher = events.Noop{}
	if cfg.NatsURL != "" {
		natsPub, err := events.NewNatsPublisher(cfg.NatsURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer natsPub.Close()
		publisher = natsPub
	}

	eng := engine.New(ext, m, live, employeeRepo, attendanceRepo, evidence, publisher, engine.Options{
		MinConfidence:         cfg.MinFaceConfidence,
		MinConsecutiveMatches: cfg.MinConsecutiveMatches,
		MinPunchOutInterval:   cfg.MinPunchOutInterval(),
	}, logger)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Engine:         eng,
		EmployeeRepo:   employeeRepo,
		AttendanceRepo: attendanceRepo,
		DB:             pool,
		APIKey:         cfg.APIKey,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
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

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
