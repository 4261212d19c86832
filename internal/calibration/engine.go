package calibration

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
)

// Engine owns the calibration feedback loop: it adjusts new predictions
// using bucket history and folds settled outcomes back into the buckets.
type Engine struct {
	store       BucketStore
	predictions repository.PredictionRepository
	outcomes    repository.OutcomeRepository
	cfg         config.CalibrationConfig
	logger      *logrus.Logger
	clock       func() time.Time
}

// NewEngine creates a calibration engine
func NewEngine(store BucketStore, predictions repository.PredictionRepository, outcomes repository.OutcomeRepository, cfg config.CalibrationConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		store:       store,
		predictions: predictions,
		outcomes:    outcomes,
		cfg:         cfg,
		logger:      logger,
		clock:       time.Now,
	}
}

// Calibrate maps a raw confidence to a calibrated one using the sport's
// bucket history. Buckets below the minimum sample size pass the raw
// value through unchanged with a factor of 1.0.
func (e *Engine) Calibrate(ctx context.Context, sport string, rawConfidence float64) (float64, float64, error) {
	label := models.BucketFor(rawConfidence)
	bucket, err := e.store.Get(ctx, sport, label)
	if err == models.ErrNotFound {
		return rawConfidence, 1.0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load calibration bucket: %w", err)
	}

	if bucket.Predictions < e.cfg.MinSampleSize {
		return rawConfidence, 1.0, nil
	}

	factor := bucket.AdjustmentFactor
	calibrated := math.Min(100, math.Max(0, rawConfidence*factor))
	return calibrated, factor, nil
}

// RecordOutcome settles a prediction against the actual result: it writes
// the outcome record, advances the prediction to settled and folds the
// result into the matching calibration bucket. Profit is computed from
// the American price captured at prediction time; a wrong pick loses the
// full stake.
func (e *Engine) RecordOutcome(ctx context.Context, predictionID uuid.UUID, actualOutcome string, stake decimal.Decimal) (*models.OutcomeRecord, error) {
	pred, err := e.predictions.GetByID(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	switch pred.Status {
	case models.PredictionSettled:
		return nil, models.ErrAlreadySettled
	case models.PredictionVoided:
		return nil, models.ErrPredictionVoided
	}

	now := e.clock()
	correct := pred.Outcome == actualOutcome

	profitLoss := stake.Neg()
	if correct {
		dec := models.DecimalOdds(pred.Price)
		if dec > 1 {
			profitLoss = stake.Mul(decimal.NewFromFloat(dec - 1))
		} else {
			profitLoss = decimal.Zero
		}
	}

	outcome := &models.OutcomeRecord{
		ID:            uuid.New(),
		PredictionID:  pred.ID,
		ActualOutcome: actualOutcome,
		Correct:       correct,
		Stake:         stake,
		ProfitLoss:    profitLoss,
		SettledAt:     now,
	}
	if err := e.outcomes.Create(ctx, outcome); err != nil {
		if err == models.ErrDuplicateKey {
			return nil, models.ErrAlreadySettled
		}
		return nil, err
	}
	if err := e.predictions.SetStatus(ctx, pred.ID, models.PredictionSettled); err != nil {
		return nil, fmt.Errorf("outcome recorded but status update failed: %w", err)
	}

	label := models.BucketFor(pred.RawConfidence)
	recomputed := false
	bucket, err := e.store.Update(ctx, pred.Sport, label, func(b models.CalibrationBucket) models.CalibrationBucket {
		b = b.Apply(correct, pred.RawConfidence, now)
		if b.PendingRecompute >= e.cfg.RecomputeBatchSize && b.Predictions >= e.cfg.MinSampleSize {
			b = b.Recompute(now)
			recomputed = true
		}
		return b
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update calibration bucket: %w", err)
	}

	metrics.OutcomesRecordedTotal.Inc()
	if recomputed {
		metrics.BucketRecomputesTotal.Inc()
		metrics.BucketAdjustmentFactor.WithLabelValues(bucket.Sport, bucket.Bucket).Set(bucket.AdjustmentFactor)
		e.logger.WithFields(logrus.Fields{
			"sport":             bucket.Sport,
			"bucket":            bucket.Bucket,
			"adjustment_factor": bucket.AdjustmentFactor,
			"predictions":       bucket.Predictions,
		}).Info("Recomputed calibration bucket")
	}

	return outcome, nil
}

// VoidPrediction marks a prediction void, excluding it from calibration
// permanently. Voiding a settled prediction is an error, voiding twice is
// a no-op failure.
func (e *Engine) VoidPrediction(ctx context.Context, predictionID uuid.UUID) error {
	pred, err := e.predictions.GetByID(ctx, predictionID)
	if err != nil {
		return err
	}
	switch pred.Status {
	case models.PredictionSettled:
		return models.ErrAlreadySettled
	case models.PredictionVoided:
		return models.ErrPredictionVoided
	}
	return e.predictions.SetStatus(ctx, predictionID, models.PredictionVoided)
}

// RecomputeAll sweeps every bucket with pending outcomes and enough
// samples and recomputes its adjustment factor. Run on a schedule so
// factors keep converging even when a bucket never reaches the batch
// threshold between outcomes.
func (e *Engine) RecomputeAll(ctx context.Context) (int, error) {
	buckets, err := e.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list calibration buckets: %w", err)
	}

	recomputed := 0
	for _, b := range buckets {
		if b.PendingRecompute == 0 || b.Predictions < e.cfg.MinSampleSize {
			continue
		}
		now := e.clock()
		updated, err := e.store.Update(ctx, b.Sport, b.Bucket, func(cur models.CalibrationBucket) models.CalibrationBucket {
			if cur.PendingRecompute == 0 || cur.Predictions < e.cfg.MinSampleSize {
				return cur
			}
			return cur.Recompute(now)
		})
		if err != nil {
			return recomputed, fmt.Errorf("failed to recompute bucket %s:%s: %w", b.Sport, b.Bucket, err)
		}
		if updated.PendingRecompute == 0 && b.PendingRecompute > 0 {
			recomputed++
			metrics.BucketRecomputesTotal.Inc()
			metrics.BucketAdjustmentFactor.WithLabelValues(updated.Sport, updated.Bucket).Set(updated.AdjustmentFactor)
		}
	}

	if recomputed > 0 {
		e.logger.WithField("buckets", recomputed).Info("Calibration sweep recomputed buckets")
	}
	return recomputed, nil
}
