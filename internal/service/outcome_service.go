package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/calibration"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/odds"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
)

// settleBatchLimit caps how many awaiting predictions one score sweep
// examines.
const settleBatchLimit = 500

// unitStake is the flat stake auto-settlement books for each prediction.
// Manual settlement via RecordOutcome can pass any stake.
var unitStake = decimal.NewFromInt(1)

// OutcomeService settles predictions, manually or from the live
// scoreboard.
type OutcomeService struct {
	calibrator  *calibration.Engine
	predictions repository.PredictionRepository
	cache       *odds.Cache
	logger      *logrus.Logger
}

// NewOutcomeService creates an outcome service
func NewOutcomeService(calibrator *calibration.Engine, predictions repository.PredictionRepository, cache *odds.Cache, logger *logrus.Logger) *OutcomeService {
	return &OutcomeService{
		calibrator:  calibrator,
		predictions: predictions,
		cache:       cache,
		logger:      logger,
	}
}

// RecordOutcome settles one prediction against the actual result.
func (s *OutcomeService) RecordOutcome(ctx context.Context, predictionID uuid.UUID, actualOutcome string, stake decimal.Decimal) (*models.OutcomeRecord, error) {
	return s.calibrator.RecordOutcome(ctx, predictionID, actualOutcome, stake)
}

// VoidPrediction excludes a prediction from calibration permanently.
func (s *OutcomeService) VoidPrediction(ctx context.Context, predictionID uuid.UUID) error {
	return s.calibrator.VoidPrediction(ctx, predictionID)
}

// SettleFromScores settles awaiting predictions for a sport against the
// live scoreboard. Ties void the prediction, matching moneyline push
// rules. Returns how many predictions were settled or voided.
func (s *OutcomeService) SettleFromScores(ctx context.Context, sport string) (int, error) {
	scores, err := s.cache.GetScores(ctx, sport)
	if err != nil {
		return 0, err
	}

	completed := make(map[string]odds.EventScore, len(scores))
	for _, sc := range scores {
		if sc.Completed {
			completed[sc.EventID] = sc
		}
	}
	if len(completed) == 0 {
		return 0, nil
	}

	awaiting, err := s.predictions.ListByStatus(ctx, models.PredictionAwaiting, settleBatchLimit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, pred := range awaiting {
		if pred.Sport != sport {
			continue
		}
		score, ok := completed[pred.EventID]
		if !ok {
			continue
		}

		if score.HomeScore == score.AwayScore {
			if err := s.calibrator.VoidPrediction(ctx, pred.ID); err != nil {
				s.logger.WithField("prediction_id", pred.ID).WithError(err).Warn("Failed to void tied prediction")
				continue
			}
			settled++
			continue
		}

		winner := score.HomeTeam
		if score.AwayScore > score.HomeScore {
			winner = score.AwayTeam
		}
		if _, err := s.calibrator.RecordOutcome(ctx, pred.ID, winner, unitStake); err != nil {
			s.logger.WithField("prediction_id", pred.ID).WithError(err).Warn("Failed to settle prediction from scoreboard")
			continue
		}
		settled++
	}

	if settled > 0 {
		s.logger.WithFields(logrus.Fields{
			"sport":   sport,
			"settled": settled,
		}).Info("Settled predictions from scoreboard")
	}
	return settled, nil
}
