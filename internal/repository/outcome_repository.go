package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siggy2543/mysportsbet-sub000/internal/database"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// PostgresOutcomeRepository implements OutcomeRepository for PostgreSQL
type PostgresOutcomeRepository struct {
	db *database.DB
}

// NewPostgresOutcomeRepository creates a new outcome repository
func NewPostgresOutcomeRepository(db *database.DB) OutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// Create inserts a new outcome record. The prediction_id unique constraint
// turns a double settlement into ErrDuplicateKey.
func (r *PostgresOutcomeRepository) Create(ctx context.Context, o *models.OutcomeRecord) error {
	query := `
		INSERT INTO outcomes (id, prediction_id, actual_outcome, correct, stake, profit_loss, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (prediction_id) DO NOTHING
	`

	tag, err := r.db.GetPool().Exec(ctx, query,
		o.ID, o.PredictionID, o.ActualOutcome, o.Correct, o.Stake, o.ProfitLoss, o.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDuplicateKey
	}
	return nil
}

// GetByPredictionID retrieves the outcome recorded for a prediction
func (r *PostgresOutcomeRepository) GetByPredictionID(ctx context.Context, predictionID uuid.UUID) (*models.OutcomeRecord, error) {
	query := `
		SELECT id, prediction_id, actual_outcome, correct, stake, profit_loss, settled_at
		FROM outcomes WHERE prediction_id = $1
	`

	o := &models.OutcomeRecord{}
	err := r.db.GetPool().QueryRow(ctx, query, predictionID).Scan(
		&o.ID, &o.PredictionID, &o.ActualOutcome, &o.Correct, &o.Stake, &o.ProfitLoss, &o.SettledAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	return o, nil
}

// ListSettled retrieves the most recent settled predictions joined with
// their outcomes, newest first. The dashboard is built from this set.
func (r *PostgresOutcomeRepository) ListSettled(ctx context.Context, limit int) ([]SettledPrediction, error) {
	query := `
		SELECT p.id, p.sport, p.event_id, p.outcome, p.price, p.model_probs, p.probability,
		       p.agreement, p.raw_confidence, p.calibrated_confidence, p.expected_margin,
		       p.source, p.features, p.status, p.created_at,
		       o.id, o.prediction_id, o.actual_outcome, o.correct, o.stake, o.profit_loss, o.settled_at
		FROM outcomes o
		JOIN predictions p ON p.id = o.prediction_id
		ORDER BY o.settled_at DESC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled predictions: %w", err)
	}
	defer rows.Close()

	var settled []SettledPrediction
	for rows.Next() {
		var s SettledPrediction
		var modelProbs []byte
		err := rows.Scan(
			&s.Prediction.ID, &s.Prediction.Sport, &s.Prediction.EventID, &s.Prediction.Outcome,
			&s.Prediction.Price, &modelProbs, &s.Prediction.Probability,
			&s.Prediction.Agreement, &s.Prediction.RawConfidence, &s.Prediction.CalibConfidence,
			&s.Prediction.ExpectedMargin, &s.Prediction.Source, &s.Prediction.Features,
			&s.Prediction.Status, &s.Prediction.CreatedAt,
			&s.Outcome.ID, &s.Outcome.PredictionID, &s.Outcome.ActualOutcome, &s.Outcome.Correct,
			&s.Outcome.Stake, &s.Outcome.ProfitLoss, &s.Outcome.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settled prediction: %w", err)
		}
		if len(modelProbs) > 0 {
			if err := json.Unmarshal(modelProbs, &s.Prediction.ModelProbs); err != nil {
				return nil, fmt.Errorf("failed to decode model probabilities: %w", err)
			}
		}
		settled = append(settled, s)
	}

	return settled, rows.Err()
}
