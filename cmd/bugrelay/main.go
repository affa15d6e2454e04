package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bugrelay/internal/config"
	"bugrelay/internal/connectivity"
	"bugrelay/internal/constants"
	"bugrelay/internal/database"
	apperrors "bugrelay/internal/errors"
	"bugrelay/internal/retry"
	"bugrelay/internal/service"
	"bugrelay/internal/tracing"
	"bugrelay/pkg/ingest"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("bugrelay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	log := apperrors.NewLogger()
	logger := log.Logger

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting bugrelay")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the queue store with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.DefaultBackoffConfig())
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			log.LogRetryableError(initErr, "Failed to open queue store")
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to open queue store after retries: %w", err)
	}
	defer func() { _ = db.Close() }()

	probe := connectivity.NewHTTPProbe(
		cfg.Connectivity.ProbeURL,
		time.Duration(cfg.Connectivity.IntervalSec)*time.Second,
		time.Duration(cfg.Connectivity.TimeoutSec)*time.Second,
		logger,
	)
	if err := probe.Start(ctx); err != nil {
		return fmt.Errorf("failed to start connectivity probe: %w", err)
	}
	defer probe.Stop()

	submitter := ingest.NewClient(time.Duration(cfg.Ingest.TimeoutSec) * time.Second)

	policy := retry.Policy{
		InitialDelay: time.Duration(cfg.Retry.InitialDelaySec) * time.Second,
		Multiplier:   cfg.Retry.Multiplier,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelaySec) * time.Second,
		MaxRetries:   cfg.Retry.MaxRetries,
	}

	coordinator := service.NewSyncCoordinator(
		db,
		submitter,
		probe,
		policy,
		time.Duration(cfg.Sync.IntervalSec)*time.Second,
		logger,
	)

	if err := coordinator.StartAutoSync(ctx); err != nil {
		return fmt.Errorf("failed to start auto-sync: %w", err)
	}
	defer coordinator.StopAutoSync()

	server := NewServer(coordinator, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server shutdown error")
	}

	return nil
}
