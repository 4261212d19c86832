package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutcomeRecord is the realized result for a prediction. Created only
// after the event concludes; never mutated thereafter.
type OutcomeRecord struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	PredictionID  uuid.UUID       `db:"prediction_id" json:"prediction_id" validate:"required"`
	ActualOutcome string          `db:"actual_outcome" json:"actual_outcome" validate:"required"`
	Correct       bool            `db:"correct" json:"correct"`
	Stake         decimal.Decimal `db:"stake" json:"stake"`
	ProfitLoss    decimal.Decimal `db:"profit_loss" json:"profit_loss"`
	SettledAt     time.Time       `db:"settled_at" json:"settled_at"`
}

// ROI returns profit/loss as a fraction of the stake.
func (o *OutcomeRecord) ROI() decimal.Decimal {
	if o.Stake.IsZero() {
		return decimal.Zero
	}
	return o.ProfitLoss.Div(o.Stake)
}
