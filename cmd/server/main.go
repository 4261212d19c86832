// Package main provides the entry point for the betting core service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/calibration"
	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/database"
	"github.com/siggy2543/mysportsbet-sub000/internal/ensemble"
	"github.com/siggy2543/mysportsbet-sub000/internal/features"
	"github.com/siggy2543/mysportsbet-sub000/internal/health"
	"github.com/siggy2543/mysportsbet-sub000/internal/logger"
	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/odds"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
	"github.com/siggy2543/mysportsbet-sub000/internal/scheduler"
	"github.com/siggy2543/mysportsbet-sub000/internal/service"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	configPath := os.Getenv("MYSPORTSBET_CONFIG")
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     version,
	}).Info("Betting core service starting")

	metrics.InitRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to ensure database schema")
	}
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build repositories")
	}

	sports, err := cfg.SportTable()
	if err != nil {
		appLog.WithError(err).Fatal("Invalid sports configuration")
	}

	// Market data cache over the metered upstream
	budget := odds.NewBudget(cfg.OddsAPI.MonthlyQuota)
	client := odds.NewClient(cfg.OddsAPI, appLog)
	cache := odds.NewCache(client, budget, cfg.Cache, appLog)

	if cfg.OddsAPI.StreamURL != "" {
		stream := odds.NewStream(cfg.OddsAPI.StreamURL, cfg.OddsAPI.APIKey, cache, appLog)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				appLog.WithError(err).Error("Odds stream terminated")
			}
		}()
	}

	// Ensemble + calibration pipeline
	artifacts, err := ensemble.LoadArtifacts(cfg.Ensemble.ArtifactPath)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to load model artifacts")
	}
	appLog.WithField("artifact_version", artifacts.Version).Info("Model artifacts loaded")

	predictor, err := ensemble.NewPredictor(cfg.Ensemble, artifacts, sports, cache, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build ensemble predictor")
	}

	calibrator := calibration.NewEngine(repos.Bucket, repos.Prediction, repos.Outcome, cfg.Calibration, appLog)

	builder := features.NewBuilder(cache, features.StaticStats{}, features.NeutralSentiment{}, features.NeutralInjuries{}, appLog)

	markets := make([]models.MarketType, 0, len(cfg.OddsAPI.Markets))
	for _, m := range cfg.OddsAPI.Markets {
		markets = append(markets, models.MarketType(m))
	}

	marketSvc := service.NewMarketService(cache, sports, markets, appLog)
	predictionSvc := service.NewPredictionService(builder, predictor, calibrator, repos.Prediction, cache, appLog)
	outcomeSvc := service.NewOutcomeService(calibrator, repos.Prediction, cache, appLog)

	// Maintenance jobs
	sched := scheduler.NewScheduler(appLog)
	if err := sched.ScheduleCacheSweep(cache, cfg.Cache.SweepIntervalSeconds); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule cache sweep")
	}
	if err := sched.SchedulePredictionRun(marketSvc, predictionSvc, sports.Keys(), cfg.Calibration.RecomputeIntervalMinutes); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule prediction pass")
	}
	if err := sched.ScheduleCalibrationSweep(calibrator, cfg.Calibration.RecomputeIntervalMinutes); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule calibration sweep")
	}
	if err := sched.ScheduleSettlement(outcomeSvc, sports.Keys(), cfg.Cache.ScoresTTLSeconds); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule scoreboard settlement")
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     version,
		Port:        cfg.App.HealthPort,
		MetricsPath: cfg.Metrics.Path,
		Logger:      appLog,
		DB:          db,
		Budget:      budget,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"sports":  sports.Keys(),
		"markets": cfg.OddsAPI.Markets,
	}).Info("Betting core service running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()
	sched.Stop()
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Health server shutdown error")
	}

	// Give in-flight fetches and stream teardown a moment.
	time.Sleep(time.Second)
	appLog.Info("Betting core service shut down")
}
