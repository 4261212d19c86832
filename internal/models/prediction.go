package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PredictionSource identifies whether a prediction came from the model
// ensemble or from the market-implied fallback.
type PredictionSource string

const (
	SourceModel          PredictionSource = "model"
	SourceMarketFallback PredictionSource = "market_fallback"
)

// PredictionStatus tracks the lifecycle of a prediction record:
// created -> awaiting_outcome -> settled, or voided when the event is
// cancelled. Settled and voided are terminal.
type PredictionStatus string

const (
	PredictionCreated  PredictionStatus = "created"
	PredictionAwaiting PredictionStatus = "awaiting_outcome"
	PredictionSettled  PredictionStatus = "settled"
	PredictionVoided   PredictionStatus = "voided"
)

// ModelKind tags one of the four ensemble sub-models.
type ModelKind string

const (
	ModelSequence    ModelKind = "sequence"
	ModelFeedForward ModelKind = "feedforward"
	ModelGradient    ModelKind = "gradient_boost"
	ModelBagged      ModelKind = "bagged_trees"
)

// PredictionRecord is one ensemble output. Immutable once created; it is
// referenced by at most one OutcomeRecord after the event settles.
type PredictionRecord struct {
	ID              uuid.UUID             `db:"id" json:"id"`
	Sport           string                `db:"sport" json:"sport" validate:"required"`
	EventID         string                `db:"event_id" json:"event_id" validate:"required"`
	Outcome         string                `db:"outcome" json:"outcome" validate:"required"`
	Price           int                   `db:"price" json:"price"`
	ModelProbs      map[ModelKind]float64 `db:"model_probs" json:"model_probs"`
	Probability     float64               `db:"probability" json:"probability" validate:"gte=0,lte=1"`
	Agreement       float64               `db:"agreement" json:"agreement" validate:"gte=0,lte=1"`
	RawConfidence   float64               `db:"raw_confidence" json:"raw_confidence" validate:"gte=0,lte=100"`
	CalibConfidence float64               `db:"calibrated_confidence" json:"calibrated_confidence" validate:"gte=0,lte=100"`
	ExpectedMargin  float64               `db:"expected_margin" json:"expected_margin"`
	Source          PredictionSource      `db:"source" json:"source"`
	Features        json.RawMessage       `db:"features" json:"features"`
	Status          PredictionStatus      `db:"status" json:"status"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
}

// IsTerminal reports whether the record can no longer change state.
func (p *PredictionRecord) IsTerminal() bool {
	return p.Status == PredictionSettled || p.Status == PredictionVoided
}

// FeatureValues decodes the stored feature snapshot.
func (p *PredictionRecord) FeatureValues() (map[string]float64, error) {
	if p.Features == nil {
		return nil, nil
	}
	var features map[string]float64
	if err := json.Unmarshal(p.Features, &features); err != nil {
		return nil, err
	}
	return features, nil
}
