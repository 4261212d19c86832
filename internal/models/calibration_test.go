package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketFor(t *testing.T) {
	assert.Equal(t, "0-50", BucketFor(0))
	assert.Equal(t, "0-50", BucketFor(49.9))
	assert.Equal(t, "50-60", BucketFor(50))
	assert.Equal(t, "60-70", BucketFor(65))
	assert.Equal(t, "70-80", BucketFor(79.99))
	assert.Equal(t, "80-100", BucketFor(80))
	assert.Equal(t, "80-100", BucketFor(100))
}

func TestBucketApplyAndRecompute(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := CalibrationBucket{Sport: "basketball_nba", Bucket: "60-70", AdjustmentFactor: 1.0}

	// 20 predictions at raw confidence 65, 12 of them correct.
	for i := 0; i < 20; i++ {
		b = b.Apply(i < 12, 65, now)
	}

	assert.Equal(t, int64(20), b.Predictions)
	assert.Equal(t, int64(12), b.Correct)
	assert.Equal(t, int64(20), b.PendingRecompute)
	assert.InDelta(t, 0.60, b.Accuracy(), 1e-9)
	assert.InDelta(t, 0.65, b.AverageRawConfidence(), 1e-9)

	b = b.Recompute(now)
	assert.InDelta(t, 0.60/0.65, b.AdjustmentFactor, 1e-9)
	assert.Zero(t, b.PendingRecompute)
}

func TestBucketRecomputeEmptyKeepsFactorOne(t *testing.T) {
	b := CalibrationBucket{Sport: "icehockey_nhl", Bucket: "0-50"}
	b = b.Recompute(time.Now())
	assert.Equal(t, 1.0, b.AdjustmentFactor)
}

func TestBucketApplyDoesNotMutateReceiver(t *testing.T) {
	orig := CalibrationBucket{Sport: "basketball_nba", Bucket: "60-70"}
	_ = orig.Apply(true, 65, time.Now())
	assert.Zero(t, orig.Predictions)
}
