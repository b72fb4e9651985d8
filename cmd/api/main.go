package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/digest"
	"github.com/Dan9191/loan-assessment/internal/export"
	"github.com/Dan9191/loan-assessment/internal/handler"
	"github.com/Dan9191/loan-assessment/internal/metrics"
	"github.com/Dan9191/loan-assessment/internal/middleware"
	"github.com/Dan9191/loan-assessment/internal/repository"
	"github.com/Dan9191/loan-assessment/internal/scoring"
	"github.com/Dan9191/loan-assessment/internal/service"
	"github.com/Dan9191/loan-assessment/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize store
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	// Initialize scoring model
	scorer, err := openScorer(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize scorer: %v", err)
	}

	// Initialize layers
	m := metrics.New(prometheus.DefaultRegisterer)
	svc := service.NewService(store, scorer, logger, cfg, m)
	projector := export.NewProjector(store, m)
	h := handler.NewHandler(svc, projector, logger)

	// Schedule digest
	scheduler := cron.New()
	if cfg.DigestSchedule != "" {
		d := digest.New(projector, email.NewSender(cfg, logger), cfg.AdminEmail, logger)
		if _, err := d.Schedule(scheduler, cfg.DigestSchedule); err != nil {
			logger.Fatalf("Failed to schedule digest: %v", err)
		}
		scheduler.Start()
		logger.Infof("Digest scheduled (%s) for %s", cfg.DigestSchedule, cfg.AdminEmail)
	}

	// Setup router
	r := handler.NewRouter(h, cfg, middleware.NewSubmissionLimiter(cfg.SubmitPerMinute))
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	<-scheduler.Stop().Done()
	logger.Info("Server exited")
}

func openStore(cfg *config.Config, logger *logrus.Logger) (repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory store; assessments are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := repository.RunMigrations(cfg.DBConn, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewRepository(db), func() { db.Close() }, nil
}

func openScorer(cfg *config.Config, logger *logrus.Logger) (scoring.Scorer, error) {
	if cfg.ScorerURL != "" {
		logger.Infof("Using remote scorer at %s", cfg.ScorerURL)
		return scoring.NewRemoteClient(cfg.ScorerURL, cfg.ScorerTimeout, logger), nil
	}
	model, err := scoring.LoadPMML(cfg.ModelPath, cfg.ModelTarget)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loaded scoring model from %s", cfg.ModelPath)
	return model, nil
}
