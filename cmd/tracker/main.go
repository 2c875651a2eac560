package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/internal/config"
	"github.com/ramonbnuezjr/stock-tracker-agent/internal/database"
	"github.com/ramonbnuezjr/stock-tracker-agent/internal/marketdata"
	"github.com/ramonbnuezjr/stock-tracker-agent/internal/notify"
	"github.com/ramonbnuezjr/stock-tracker-agent/internal/storage"
	"github.com/ramonbnuezjr/stock-tracker-agent/internal/tracker"
	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/utils"
)

func main() {
	// Initialize logger
	logger := utils.NewLogger("stock-tracker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.WithFields(logrus.Fields{
		"symbols":   cfg.Symbols,
		"threshold": cfg.PriceThreshold.String(),
		"cache_ttl": cfg.CacheTTL,
	}).Info("Configuration loaded")

	// Initialize database connection
	db, err := database.NewConnection(cfg.Database.DbUri, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	repo := storage.NewRepository(db, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repo.InitSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage schema")
	}

	// Providers in priority order; keyless providers are skipped and
	// Yahoo Finance is always appended as the credential-free fallback.
	market := marketdata.NewService(buildProviders(cfg, logger), cfg.CacheTTL, logger)
	pipeline := tracker.NewPipeline(market, repo, cfg.PriceThreshold, logger)
	notifier := buildNotifier(cfg, logger)

	if cfg.CheckInterval <= 0 {
		if err := runCheck(ctx, cfg, repo, pipeline, notifier, logger); err != nil {
			os.Exit(1)
		}
		return
	}

	// Interval mode: repeat non-overlapping checks until interrupted
	runner := tracker.NewRunner(func(ctx context.Context) {
		_ = runCheck(ctx, cfg, repo, pipeline, notifier, logger)
	}, cfg.CheckInterval, logger)

	if err := runner.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down stock tracker...")
	runner.Stop()
	cancel()
}

func buildProviders(cfg *config.Config, logger *logrus.Logger) []marketdata.Provider {
	var providers []marketdata.Provider

	if cfg.Providers.Finnhub != "" {
		providers = append(providers, marketdata.NewFinnhub(cfg.Providers.Finnhub, logger))
	}
	if cfg.Providers.TwelveData != "" {
		providers = append(providers, marketdata.NewTwelveData(cfg.Providers.TwelveData, logger))
	}
	if cfg.Providers.AlphaVantage != "" {
		providers = append(providers, marketdata.NewAlphaVantage(cfg.Providers.AlphaVantage, logger))
	}
	providers = append(providers, marketdata.NewYahoo(logger))

	return providers
}

func buildNotifier(cfg *config.Config, logger *logrus.Logger) notify.Notifier {
	switch cfg.NotificationChannel {
	case "email":
		return notify.NewEmail(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.To, logger)
	default:
		return notify.Console{}
	}
}

func runCheck(ctx context.Context, cfg *config.Config, repo *storage.Repository, pipeline *tracker.Pipeline, notifier notify.Notifier, logger *logrus.Logger) error {
	start := time.Now()
	runID := uuid.New().String()
	log := logger.WithField("run_id", runID)

	execID, err := repo.StartExecution(ctx, runID, cfg.Symbols)
	if err != nil {
		log.WithError(err).Error("Failed to log execution start")
		return err
	}

	log.WithFields(logrus.Fields{
		"symbols":   cfg.Symbols,
		"threshold": cfg.PriceThreshold.String(),
	}).Info("Starting stock check")

	breaches, err := pipeline.ThresholdBreaches(ctx, cfg.Symbols)
	if err != nil {
		log.WithError(err).Error("Stock check failed")
		if completeErr := repo.CompleteExecution(ctx, execID, 0, 0, false, err.Error()); completeErr != nil {
			log.WithError(completeErr).Error("Failed to log execution completion")
		}
		return err
	}

	alerts := make([]models.Alert, 0, len(breaches))
	for _, breach := range breaches {
		alert := models.AlertFromChange(breach, "", nil)
		if _, err := repo.SaveAlert(ctx, alert, false); err != nil {
			log.WithError(err).WithField("symbol", alert.Symbol).Error("Failed to persist alert")
		}
		alerts = append(alerts, alert)
	}

	sent := notify.SendAll(notifier, alerts, logger)

	if err := repo.CompleteExecution(ctx, execID, len(breaches), sent, true, ""); err != nil {
		log.WithError(err).Error("Failed to log execution completion")
		return err
	}

	log.WithFields(logrus.Fields{
		"alerts_triggered":   len(breaches),
		"notifications_sent": sent,
		"duration_ms":        time.Since(start).Milliseconds(),
	}).Info("Stock check completed")

	return nil
}
