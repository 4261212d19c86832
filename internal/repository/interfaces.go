// Package repository provides data access for predictions, outcomes and
// calibration buckets.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/siggy2543/mysportsbet-sub000/internal/database"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// PredictionRepository defines the interface for prediction record access
type PredictionRepository interface {
	Create(ctx context.Context, prediction *models.PredictionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionRecord, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.PredictionStatus) error
	ListByStatus(ctx context.Context, status models.PredictionStatus, limit int) ([]*models.PredictionRecord, error)
}

// SettledPrediction pairs a settled prediction with its outcome.
type SettledPrediction struct {
	Prediction models.PredictionRecord
	Outcome    models.OutcomeRecord
}

// OutcomeRepository defines the interface for outcome record access
type OutcomeRepository interface {
	Create(ctx context.Context, outcome *models.OutcomeRecord) error
	GetByPredictionID(ctx context.Context, predictionID uuid.UUID) (*models.OutcomeRecord, error)
	ListSettled(ctx context.Context, limit int) ([]SettledPrediction, error)
}

// Repositories holds all repository implementations
type Repositories struct {
	Prediction PredictionRepository
	Outcome    OutcomeRepository
	Bucket     *PostgresBucketStore
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Prediction: NewPostgresPredictionRepository(db),
		Outcome:    NewPostgresOutcomeRepository(db),
		Bucket:     NewPostgresBucketStore(db),
	}, nil
}
