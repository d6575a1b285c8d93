package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ResumeMailer/internal/api"
	"ResumeMailer/internal/campaigns"
	"ResumeMailer/internal/config"
	"ResumeMailer/internal/db"
	"ResumeMailer/internal/email"
	"ResumeMailer/internal/logging"
	"ResumeMailer/internal/metrics"
	"ResumeMailer/internal/templates"
	"ResumeMailer/internal/worker"
)

// store is everything the server needs from persistence; db.Store and
// db.MemoryStore both provide it.
type store interface {
	campaigns.Store
	worker.Store
	email.LogWriter
}

func main() {

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	var (
		jobs   store
		health api.Pinger
	)

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		jobs = db.NewMemoryStore(time.Now)
	} else {
		if cfg.MigrateOnStart {
			if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
				logger.Fatal("database migration failed", zap.Error(err))
			}
		}

		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pg.Close()

		jobs = pg
		health = pg
	}

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Email Sender
	// ------------------------------------------------
	sender := email.NewSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPassword,
		cfg.SMTPFrom,
		cfg.RateLimit,
		cfg.RetryAttempts,
		logger,
	)
	sender.Logs = jobs

	var suppressions api.Suppressions
	if cfg.RedisAddr != "" {
		client, err := email.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer client.Close()

		guard := email.NewRedisGuard(client)
		sender.Guard = guard
		suppressions = guard
	} else {
		logger.Warn("REDIS_ADDR not set, delivery dedupe and suppression list disabled")
	}

	// ------------------------------------------------
	// Templates
	// ------------------------------------------------
	renderer, err := templates.New(cfg.AppBaseURL)
	if err != nil {
		logger.Fatal("failed to load email templates", zap.Error(err))
	}

	// ------------------------------------------------
	// Schedulers + Processor
	// ------------------------------------------------
	scheduler := campaigns.NewScheduler(jobs, logger)

	processor := worker.NewProcessor(jobs, renderer, sender, scheduler, logger)
	processor.BatchSize = cfg.BatchSize
	processor.Workers = cfg.WorkerCount
	processor.StaleAfter = cfg.StaleProcessingAfter

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	handler := &api.Handler{
		Processor:    processor,
		Scheduler:    scheduler,
		Log:          logger,
		Suppressions: suppressions,
		Health:       health,
	}

	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET not set, /api routes will refuse every request")
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.APIPort,
		CronSecret:   cfg.CronSecret,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}, handler)

	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// In-flight batches finish inside their request before this returns.
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
