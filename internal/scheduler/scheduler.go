// Package scheduler runs the periodic maintenance jobs: cache retention
// sweeps, calibration recomputes and scoreboard settlement.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/calibration"
	"github.com/siggy2543/mysportsbet-sub000/internal/features"
	"github.com/siggy2543/mysportsbet-sub000/internal/odds"
	"github.com/siggy2543/mysportsbet-sub000/internal/service"
)

// Scheduler manages the periodic maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	logger    *logrus.Logger
	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
}

// NewScheduler creates a new scheduler
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger,
		jobIDs: make([]cron.EntryID, 0),
	}
}

// ScheduleCacheSweep schedules the market data cache retention sweep.
func (s *Scheduler) ScheduleCacheSweep(cache *odds.Cache, intervalSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if intervalSeconds < 5 {
		intervalSeconds = 5
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", intervalSeconds), func() {
		removed := cache.Sweep()
		if removed > 0 {
			s.logger.WithField("removed", removed).Debug("Cache sweep removed expired entries")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cache sweep job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("interval_seconds", intervalSeconds).Info("Scheduled cache sweep")
	return nil
}

// ScheduleCalibrationSweep schedules the bucket recompute sweep so
// adjustment factors keep converging even in low-volume buckets.
func (s *Scheduler) ScheduleCalibrationSweep(engine *calibration.Engine, intervalMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := engine.RecomputeAll(ctx); err != nil {
			s.logger.WithError(err).Error("Calibration sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add calibration sweep job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("interval_minutes", intervalMinutes).Info("Scheduled calibration sweep")
	return nil
}

// SchedulePredictionRun schedules the periodic prediction pass: for every
// upcoming event it refreshes the market, scans for arbitrage and records
// a calibrated prediction on the home side.
func (s *Scheduler) SchedulePredictionRun(markets *service.MarketService, predictions *service.PredictionService, sports []string, intervalMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(intervalMinutes)*time.Minute)
		defer cancel()

		for _, sport := range sports {
			if err := s.predictSport(ctx, markets, predictions, sport); err != nil {
				s.logger.WithField("sport", sport).WithError(err).Warn("Prediction pass failed")
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add prediction job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("interval_minutes", intervalMinutes).Info("Scheduled prediction pass")
	return nil
}

// predictSport runs one prediction pass over a sport's upcoming events.
func (s *Scheduler) predictSport(ctx context.Context, markets *service.MarketService, predictions *service.PredictionService, sport string) error {
	events, err := markets.ListEvents(ctx, sport)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, ev := range events {
		// Only events starting within the next day are worth a fresh look.
		if ev.CommenceTime.Before(now) || ev.CommenceTime.After(now.Add(24*time.Hour)) {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := markets.FindArbitrage(ctx, sport, ev.ID); err != nil {
			s.logger.WithField("event_id", ev.ID).WithError(err).Debug("Market refresh failed during prediction pass")
			continue
		}

		_, err := predictions.Predict(ctx, features.Matchup{
			Sport:    sport,
			EventID:  ev.ID,
			HomeTeam: ev.HomeTeam,
			AwayTeam: ev.AwayTeam,
			Outcome:  ev.HomeTeam,
		})
		if err != nil {
			s.logger.WithField("event_id", ev.ID).WithError(err).Warn("Prediction failed for event")
		}
	}
	return nil
}

// ScheduleSettlement schedules scoreboard settlement for the given sports.
func (s *Scheduler) ScheduleSettlement(outcomes *service.OutcomeService, sports []string, intervalSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if intervalSeconds < 30 {
		intervalSeconds = 30
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", intervalSeconds), func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(intervalSeconds)*time.Second)
		defer cancel()

		for _, sport := range sports {
			if _, err := outcomes.SettleFromScores(ctx, sport); err != nil {
				s.logger.WithField("sport", sport).WithError(err).Warn("Scoreboard settlement failed")
			}
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add settlement job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"sports":           len(sports),
		"interval_seconds": intervalSeconds,
	}).Info("Scheduled scoreboard settlement")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
