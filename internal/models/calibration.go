package models

import (
	"fmt"
	"time"
)

// BucketRange is one fixed confidence range used for calibration.
type BucketRange struct {
	Label string
	Low   float64 // inclusive
	High  float64 // exclusive, except the last bucket which includes 100
}

// BucketRanges are the fixed confidence quantiles. They never change at
// runtime; CalibrationBucket rows are keyed by (sport, label).
var BucketRanges = []BucketRange{
	{Label: "0-50", Low: 0, High: 50},
	{Label: "50-60", Low: 50, High: 60},
	{Label: "60-70", Low: 60, High: 70},
	{Label: "70-80", Low: 70, High: 80},
	{Label: "80-100", Low: 80, High: 100},
}

// BucketFor maps a raw confidence (0-100) to its bucket label.
func BucketFor(rawConfidence float64) string {
	for _, r := range BucketRanges {
		if rawConfidence >= r.Low && rawConfidence < r.High {
			return r.Label
		}
	}
	last := BucketRanges[len(BucketRanges)-1]
	if rawConfidence >= last.Low {
		return last.Label
	}
	return BucketRanges[0].Label
}

// CalibrationBucket holds the long-run accuracy statistics for one
// (sport, confidence range) pair. Rows are only ever appended to, never
// deleted; the adjustment factor is the multiplicative correction applied
// to future raw confidence in the bucket.
type CalibrationBucket struct {
	Sport            string    `db:"sport" json:"sport"`
	Bucket           string    `db:"bucket" json:"bucket"`
	Predictions      int64     `db:"predictions" json:"predictions"`
	Correct          int64     `db:"correct" json:"correct"`
	ConfidenceSum    float64   `db:"confidence_sum" json:"confidence_sum"`
	AdjustmentFactor float64   `db:"adjustment_factor" json:"adjustment_factor"`
	PendingRecompute int64     `db:"pending_recompute" json:"pending_recompute"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the composite store key for the bucket.
func (b *CalibrationBucket) Key() string {
	return fmt.Sprintf("%s:%s", b.Sport, b.Bucket)
}

// Accuracy returns the realized hit rate of the bucket.
func (b *CalibrationBucket) Accuracy() float64 {
	if b.Predictions == 0 {
		return 0
	}
	return float64(b.Correct) / float64(b.Predictions)
}

// AverageRawConfidence returns the mean raw confidence of predictions
// recorded into the bucket, on the 0-1 scale.
func (b *CalibrationBucket) AverageRawConfidence() float64 {
	if b.Predictions == 0 {
		return 0
	}
	return b.ConfidenceSum / float64(b.Predictions) / 100.0
}

// Apply folds one settled outcome into the bucket and returns the new
// state. The receiver is not mutated, so replay in tests is deterministic.
func (b CalibrationBucket) Apply(correct bool, rawConfidence float64, now time.Time) CalibrationBucket {
	b.Predictions++
	if correct {
		b.Correct++
	}
	b.ConfidenceSum += rawConfidence
	b.PendingRecompute++
	b.UpdatedAt = now
	return b
}

// Recompute recalculates the adjustment factor from the accumulated
// statistics and clears the pending counter. Factor is observed accuracy
// over average raw confidence in the bucket.
func (b CalibrationBucket) Recompute(now time.Time) CalibrationBucket {
	avg := b.AverageRawConfidence()
	if avg > 0 {
		b.AdjustmentFactor = b.Accuracy() / avg
	} else {
		b.AdjustmentFactor = 1.0
	}
	b.PendingRecompute = 0
	b.UpdatedAt = now
	return b
}
