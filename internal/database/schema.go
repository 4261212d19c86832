package database

import (
	"context"
	"fmt"
)

// schema holds the minimum persisted state for the core: prediction
// records, their 1:1 optional outcome records, and the calibration
// buckets keyed by (sport, bucket range).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		sport TEXT NOT NULL,
		event_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		model_probs JSONB,
		probability DOUBLE PRECISION NOT NULL,
		agreement DOUBLE PRECISION NOT NULL,
		raw_confidence DOUBLE PRECISION NOT NULL,
		calibrated_confidence DOUBLE PRECISION NOT NULL,
		expected_margin DOUBLE PRECISION NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		features JSONB,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_sport_status ON predictions (sport, status)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		id UUID PRIMARY KEY,
		prediction_id UUID NOT NULL UNIQUE REFERENCES predictions (id),
		actual_outcome TEXT NOT NULL,
		correct BOOLEAN NOT NULL,
		stake NUMERIC(14, 2) NOT NULL,
		profit_loss NUMERIC(14, 2) NOT NULL,
		settled_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS calibration_buckets (
		sport TEXT NOT NULL,
		bucket TEXT NOT NULL,
		predictions BIGINT NOT NULL DEFAULT 0,
		correct BIGINT NOT NULL DEFAULT 0,
		confidence_sum DOUBLE PRECISION NOT NULL DEFAULT 0,
		adjustment_factor DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		pending_recompute BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (sport, bucket)
	)`,
}

// EnsureSchema creates the core tables when they do not exist yet.
// Production deployments run migrations separately; this keeps local and
// test environments bootstrappable.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
