package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/siggy2543/mysportsbet-sub000/internal/database"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// PostgresBucketStore persists calibration buckets. Update runs the
// read-modify-write inside a transaction with a row lock so concurrent
// settlements on the same (sport, bucket) serialize instead of losing
// counts.
type PostgresBucketStore struct {
	db *database.DB
}

// NewPostgresBucketStore creates a new calibration bucket store
func NewPostgresBucketStore(db *database.DB) *PostgresBucketStore {
	return &PostgresBucketStore{db: db}
}

const bucketColumns = `sport, bucket, predictions, correct, confidence_sum, adjustment_factor, pending_recompute, updated_at`

func scanBucket(row pgx.Row) (models.CalibrationBucket, error) {
	var b models.CalibrationBucket
	err := row.Scan(
		&b.Sport, &b.Bucket, &b.Predictions, &b.Correct,
		&b.ConfidenceSum, &b.AdjustmentFactor, &b.PendingRecompute, &b.UpdatedAt,
	)
	return b, err
}

// Get retrieves one bucket. A bucket that has never been written returns
// ErrNotFound; callers treat that as a factor of 1.0.
func (s *PostgresBucketStore) Get(ctx context.Context, sport, bucket string) (models.CalibrationBucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM calibration_buckets WHERE sport = $1 AND bucket = $2`

	b, err := scanBucket(s.db.GetPool().QueryRow(ctx, query, sport, bucket))
	if err == pgx.ErrNoRows {
		return models.CalibrationBucket{}, models.ErrNotFound
	}
	if err != nil {
		return models.CalibrationBucket{}, fmt.Errorf("failed to get calibration bucket: %w", err)
	}
	return b, nil
}

// Update applies a pure transition function to the bucket atomically.
// A missing row starts from the zero bucket with factor 1.0, so the first
// settlement for a (sport, bucket) pair creates it.
func (s *PostgresBucketStore) Update(ctx context.Context, sport, bucket string, apply func(models.CalibrationBucket) models.CalibrationBucket) (models.CalibrationBucket, error) {
	tx, err := s.db.GetPool().Begin(ctx)
	if err != nil {
		return models.CalibrationBucket{}, fmt.Errorf("failed to begin bucket update: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + bucketColumns + ` FROM calibration_buckets WHERE sport = $1 AND bucket = $2 FOR UPDATE`
	current, err := scanBucket(tx.QueryRow(ctx, query, sport, bucket))
	if err == pgx.ErrNoRows {
		current = models.CalibrationBucket{Sport: sport, Bucket: bucket, AdjustmentFactor: 1.0}
	} else if err != nil {
		return models.CalibrationBucket{}, fmt.Errorf("failed to lock calibration bucket: %w", err)
	}

	next := apply(current)
	next.Sport = sport
	next.Bucket = bucket

	upsert := `
		INSERT INTO calibration_buckets (sport, bucket, predictions, correct, confidence_sum, adjustment_factor, pending_recompute, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sport, bucket) DO UPDATE SET
			predictions = EXCLUDED.predictions,
			correct = EXCLUDED.correct,
			confidence_sum = EXCLUDED.confidence_sum,
			adjustment_factor = EXCLUDED.adjustment_factor,
			pending_recompute = EXCLUDED.pending_recompute,
			updated_at = EXCLUDED.updated_at
	`
	_, err = tx.Exec(ctx, upsert,
		next.Sport, next.Bucket, next.Predictions, next.Correct,
		next.ConfidenceSum, next.AdjustmentFactor, next.PendingRecompute, next.UpdatedAt,
	)
	if err != nil {
		return models.CalibrationBucket{}, fmt.Errorf("failed to write calibration bucket: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.CalibrationBucket{}, fmt.Errorf("failed to commit bucket update: %w", err)
	}
	return next, nil
}

// List returns every persisted bucket, optionally filtered by sport.
func (s *PostgresBucketStore) List(ctx context.Context, sport string) ([]models.CalibrationBucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM calibration_buckets`
	args := []any{}
	if sport != "" {
		query += ` WHERE sport = $1`
		args = append(args, sport)
	}
	query += ` ORDER BY sport, bucket`

	rows, err := s.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration buckets: %w", err)
	}
	defer rows.Close()

	var buckets []models.CalibrationBucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}
