package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/calibration"
	"github.com/siggy2543/mysportsbet-sub000/internal/ensemble"
	"github.com/siggy2543/mysportsbet-sub000/internal/features"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
)

// PredictionService runs the full prediction pipeline: feature assembly,
// ensemble scoring, confidence calibration and persistence.
type PredictionService struct {
	builder     *features.Builder
	predictor   *ensemble.Predictor
	calibrator  *calibration.Engine
	predictions repository.PredictionRepository
	prices      features.PriceSource
	logger      *logrus.Logger
	clock       func() time.Time
}

// NewPredictionService creates the prediction pipeline
func NewPredictionService(
	builder *features.Builder,
	predictor *ensemble.Predictor,
	calibrator *calibration.Engine,
	predictions repository.PredictionRepository,
	prices features.PriceSource,
	logger *logrus.Logger,
) *PredictionService {
	return &PredictionService{
		builder:     builder,
		predictor:   predictor,
		calibrator:  calibrator,
		predictions: predictions,
		prices:      prices,
		logger:      logger,
		clock:       time.Now,
	}
}

// Predict produces and persists one calibrated prediction for a matchup.
// The best available price at prediction time is captured on the record
// so settlement can compute profit without refetching history.
func (s *PredictionService) Predict(ctx context.Context, m features.Matchup) (*models.PredictionRecord, error) {
	fv, err := s.builder.Build(ctx, m)
	if err != nil {
		return nil, err
	}

	result, err := s.predictor.Predict(ensemble.Request{
		Sport:    m.Sport,
		EventID:  m.EventID,
		Outcome:  m.Outcome,
		Features: fv,
	})
	if err != nil {
		return nil, err
	}

	calibrated, factor, err := s.calibrator.Calibrate(ctx, m.Sport, result.RawConfidence)
	if err != nil {
		return nil, err
	}

	price := 0
	if quote, err := s.prices.BestPrice(m.EventID, models.MarketMoneyline, m.Outcome); err == nil {
		price = quote.Price
	}

	featureJSON, err := fv.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature snapshot: %w", err)
	}

	record := &models.PredictionRecord{
		ID:              uuid.New(),
		Sport:           m.Sport,
		EventID:         m.EventID,
		Outcome:         m.Outcome,
		Price:           price,
		ModelProbs:      result.ModelProbs,
		Probability:     result.Probability,
		Agreement:       result.Agreement,
		RawConfidence:   result.RawConfidence,
		CalibConfidence: calibrated,
		ExpectedMargin:  result.ExpectedMargin,
		Source:          result.Source,
		Features:        featureJSON,
		Status:          models.PredictionAwaiting,
		CreatedAt:       s.clock(),
	}
	if err := s.predictions.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"prediction_id":     record.ID,
		"sport":             m.Sport,
		"event_id":          m.EventID,
		"outcome":           m.Outcome,
		"probability":       result.Probability,
		"raw_confidence":    result.RawConfidence,
		"calibrated":        calibrated,
		"adjustment_factor": factor,
		"source":            result.Source,
	}).Info("Prediction recorded")

	return record, nil
}

// GetPrediction retrieves one prediction by ID.
func (s *PredictionService) GetPrediction(ctx context.Context, id uuid.UUID) (*models.PredictionRecord, error) {
	return s.predictions.GetByID(ctx, id)
}
