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

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Create inserts a new prediction record
func (r *PostgresPredictionRepository) Create(ctx context.Context, p *models.PredictionRecord) error {
	modelProbs, err := json.Marshal(p.ModelProbs)
	if err != nil {
		return fmt.Errorf("failed to encode model probabilities: %w", err)
	}

	query := `
		INSERT INTO predictions (id, sport, event_id, outcome, price, model_probs, probability,
		                         agreement, raw_confidence, calibrated_confidence, expected_margin,
		                         source, features, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		p.ID, p.Sport, p.EventID, p.Outcome, p.Price, modelProbs, p.Probability,
		p.Agreement, p.RawConfidence, p.CalibConfidence, p.ExpectedMargin,
		p.Source, p.Features, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	return nil
}

const predictionColumns = `id, sport, event_id, outcome, price, model_probs, probability,
	agreement, raw_confidence, calibrated_confidence, expected_margin, source, features, status, created_at`

func scanPrediction(row pgx.Row) (*models.PredictionRecord, error) {
	p := &models.PredictionRecord{}
	var modelProbs []byte
	err := row.Scan(
		&p.ID, &p.Sport, &p.EventID, &p.Outcome, &p.Price, &modelProbs, &p.Probability,
		&p.Agreement, &p.RawConfidence, &p.CalibConfidence, &p.ExpectedMargin,
		&p.Source, &p.Features, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(modelProbs) > 0 {
		if err := json.Unmarshal(modelProbs, &p.ModelProbs); err != nil {
			return nil, fmt.Errorf("failed to decode model probabilities: %w", err)
		}
	}
	return p, nil
}

// GetByID retrieves a prediction record by ID
func (r *PostgresPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionRecord, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	p, err := scanPrediction(r.db.GetPool().QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

// SetStatus advances a prediction's lifecycle state
func (r *PostgresPredictionRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.PredictionStatus) error {
	query := `UPDATE predictions SET status = $2 WHERE id = $1`

	tag, err := r.db.GetPool().Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update prediction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByStatus retrieves prediction records in a given lifecycle state
func (r *PostgresPredictionRepository) ListByStatus(ctx context.Context, status models.PredictionStatus, limit int) ([]*models.PredictionRecord, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE status = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.GetPool().Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions by status: %w", err)
	}
	defer rows.Close()

	var predictions []*models.PredictionRecord
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}
