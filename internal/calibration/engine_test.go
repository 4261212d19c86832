package calibration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
)

type memPredictionRepo struct {
	records map[uuid.UUID]*models.PredictionRecord
}

func newMemPredictionRepo() *memPredictionRepo {
	return &memPredictionRepo{records: make(map[uuid.UUID]*models.PredictionRecord)}
}

func (r *memPredictionRepo) Create(_ context.Context, p *models.PredictionRecord) error {
	if _, ok := r.records[p.ID]; ok {
		return models.ErrDuplicateKey
	}
	cp := *p
	r.records[p.ID] = &cp
	return nil
}

func (r *memPredictionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PredictionRecord, error) {
	p, ok := r.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPredictionRepo) SetStatus(_ context.Context, id uuid.UUID, status models.PredictionStatus) error {
	p, ok := r.records[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *memPredictionRepo) ListByStatus(_ context.Context, status models.PredictionStatus, limit int) ([]*models.PredictionRecord, error) {
	var out []*models.PredictionRecord
	for _, p := range r.records {
		if p.Status == status && len(out) < limit {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memOutcomeRepo struct {
	byPrediction map[uuid.UUID]*models.OutcomeRecord
	predictions  *memPredictionRepo
}

func newMemOutcomeRepo(preds *memPredictionRepo) *memOutcomeRepo {
	return &memOutcomeRepo{byPrediction: make(map[uuid.UUID]*models.OutcomeRecord), predictions: preds}
}

func (r *memOutcomeRepo) Create(_ context.Context, o *models.OutcomeRecord) error {
	if _, ok := r.byPrediction[o.PredictionID]; ok {
		return models.ErrDuplicateKey
	}
	cp := *o
	r.byPrediction[o.PredictionID] = &cp
	return nil
}

func (r *memOutcomeRepo) GetByPredictionID(_ context.Context, predictionID uuid.UUID) (*models.OutcomeRecord, error) {
	o, ok := r.byPrediction[predictionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOutcomeRepo) ListSettled(_ context.Context, limit int) ([]repository.SettledPrediction, error) {
	var out []repository.SettledPrediction
	for id, o := range r.byPrediction {
		if len(out) >= limit {
			break
		}
		p := r.predictions.records[id]
		out = append(out, repository.SettledPrediction{Prediction: *p, Outcome: *o})
	}
	return out, nil
}

func testCalibrationConfig() config.CalibrationConfig {
	return config.CalibrationConfig{
		MinSampleSize:            20,
		RecomputeBatchSize:       10,
		RecomputeIntervalMinutes: 15,
	}
}

func newTestEngine(t *testing.T) (*Engine, *memPredictionRepo, *memOutcomeRepo, *MemoryStore) {
	t.Helper()
	preds := newMemPredictionRepo()
	outs := newMemOutcomeRepo(preds)
	store := NewMemoryStore()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(store, preds, outs, testCalibrationConfig(), log), preds, outs, store
}

func awaitingPrediction(sport string, rawConfidence float64, price int) *models.PredictionRecord {
	return &models.PredictionRecord{
		ID:            uuid.New(),
		Sport:         sport,
		EventID:       "ev-" + uuid.NewString()[:8],
		Outcome:       "Lakers",
		Price:         price,
		Probability:   0.65,
		RawConfidence: rawConfidence,
		Source:        models.SourceModel,
		Status:        models.PredictionAwaiting,
		CreatedAt:     time.Now(),
	}
}

func TestCalibratePassesThroughBelowMinSample(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	// Unseen bucket.
	calibrated, factor, err := engine.Calibrate(ctx, "basketball_nba", 65)
	require.NoError(t, err)
	assert.Equal(t, 65.0, calibrated)
	assert.Equal(t, 1.0, factor)

	// Seen but thin bucket.
	_, err = store.Update(ctx, "basketball_nba", "60-70", func(b models.CalibrationBucket) models.CalibrationBucket {
		b.Predictions = 5
		b.AdjustmentFactor = 0.5
		return b
	})
	require.NoError(t, err)

	calibrated, factor, err = engine.Calibrate(ctx, "basketball_nba", 65)
	require.NoError(t, err)
	assert.Equal(t, 65.0, calibrated)
	assert.Equal(t, 1.0, factor)
}

func TestCalibrateAppliesBucketFactor(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "basketball_nba", "60-70", func(b models.CalibrationBucket) models.CalibrationBucket {
		b.Predictions = 40
		b.AdjustmentFactor = 0.9
		return b
	})
	require.NoError(t, err)

	calibrated, factor, err := engine.Calibrate(ctx, "basketball_nba", 65)
	require.NoError(t, err)
	assert.InDelta(t, 58.5, calibrated, 1e-9)
	assert.InDelta(t, 0.9, factor, 1e-9)
}

func TestCalibrateClampsToHundred(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "basketball_nba", "80-100", func(b models.CalibrationBucket) models.CalibrationBucket {
		b.Predictions = 40
		b.AdjustmentFactor = 1.5
		return b
	})
	require.NoError(t, err)

	calibrated, _, err := engine.Calibrate(ctx, "basketball_nba", 90)
	require.NoError(t, err)
	assert.Equal(t, 100.0, calibrated)
}

func TestRecordOutcomeSettlesPrediction(t *testing.T) {
	engine, preds, outs, _ := newTestEngine(t)
	ctx := context.Background()

	pred := awaitingPrediction("basketball_nba", 65, 100)
	require.NoError(t, preds.Create(ctx, pred))

	stake := decimal.NewFromInt(10)
	outcome, err := engine.RecordOutcome(ctx, pred.ID, "Lakers", stake)
	require.NoError(t, err)

	assert.True(t, outcome.Correct)
	// +100 pays even money.
	assert.True(t, outcome.ProfitLoss.Equal(decimal.NewFromInt(10)))

	stored, err := preds.GetByID(ctx, pred.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionSettled, stored.Status)

	saved, err := outs.GetByPredictionID(ctx, pred.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lakers", saved.ActualOutcome)
}

func TestRecordOutcomeWrongPickLosesStake(t *testing.T) {
	engine, preds, _, _ := newTestEngine(t)
	ctx := context.Background()

	pred := awaitingPrediction("basketball_nba", 65, -150)
	require.NoError(t, preds.Create(ctx, pred))

	outcome, err := engine.RecordOutcome(ctx, pred.ID, "Celtics", decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.False(t, outcome.Correct)
	assert.True(t, outcome.ProfitLoss.Equal(decimal.NewFromInt(-10)))
}

func TestRecordOutcomeTerminalStates(t *testing.T) {
	engine, preds, _, _ := newTestEngine(t)
	ctx := context.Background()

	pred := awaitingPrediction("basketball_nba", 65, 100)
	require.NoError(t, preds.Create(ctx, pred))

	_, err := engine.RecordOutcome(ctx, pred.ID, "Lakers", decimal.NewFromInt(1))
	require.NoError(t, err)

	_, err = engine.RecordOutcome(ctx, pred.ID, "Lakers", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrAlreadySettled)

	assert.ErrorIs(t, engine.VoidPrediction(ctx, pred.ID), models.ErrAlreadySettled)

	_, err = engine.RecordOutcome(ctx, uuid.New(), "Lakers", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestVoidPredictionExcludesFromCalibration(t *testing.T) {
	engine, preds, _, store := newTestEngine(t)
	ctx := context.Background()

	pred := awaitingPrediction("basketball_nba", 65, 100)
	require.NoError(t, preds.Create(ctx, pred))

	require.NoError(t, engine.VoidPrediction(ctx, pred.ID))

	stored, err := preds.GetByID(ctx, pred.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionVoided, stored.Status)

	// Voiding twice and settling a voided prediction both fail.
	assert.ErrorIs(t, engine.VoidPrediction(ctx, pred.ID), models.ErrPredictionVoided)
	_, err = engine.RecordOutcome(ctx, pred.ID, "Lakers", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, models.ErrPredictionVoided)

	// No bucket was touched.
	buckets, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestRecordOutcomeRecomputesAtBatchThreshold(t *testing.T) {
	engine, preds, _, store := newTestEngine(t)
	ctx := context.Background()

	// 20 settlements at raw confidence 80, 60% of them correct. The batch
	// threshold of 10 fires at the 20th because min sample is also 20.
	for i := 0; i < 20; i++ {
		pred := awaitingPrediction("basketball_nba", 80, 100)
		require.NoError(t, preds.Create(ctx, pred))

		actual := "Lakers"
		if i%5 >= 3 { // 40% wrong
			actual = "Celtics"
		}
		_, err := engine.RecordOutcome(ctx, pred.ID, actual, decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	bucket, err := store.Get(ctx, "basketball_nba", "80-100")
	require.NoError(t, err)
	assert.Equal(t, int64(20), bucket.Predictions)
	assert.Equal(t, int64(12), bucket.Correct)
	// factor = accuracy / avg raw confidence = 0.6 / 0.8
	assert.InDelta(t, 0.75, bucket.AdjustmentFactor, 1e-9)
	assert.Zero(t, bucket.PendingRecompute)

	// New predictions in the bucket now get dampened.
	calibrated, factor, err := engine.Calibrate(ctx, "basketball_nba", 80)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, factor, 1e-9)
	assert.InDelta(t, 60.0, calibrated, 1e-9)
}

func TestRecomputeAllSweepsPendingBuckets(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	// Enough samples but below the batch threshold: only the sweep
	// recomputes it.
	_, err := store.Update(ctx, "basketball_nba", "60-70", func(b models.CalibrationBucket) models.CalibrationBucket {
		b.Predictions = 25
		b.Correct = 15
		b.ConfidenceSum = 25 * 65
		b.PendingRecompute = 5
		b.AdjustmentFactor = 1.0
		return b
	})
	require.NoError(t, err)

	// Thin bucket stays untouched.
	_, err = store.Update(ctx, "icehockey_nhl", "60-70", func(b models.CalibrationBucket) models.CalibrationBucket {
		b.Predictions = 3
		b.PendingRecompute = 3
		return b
	})
	require.NoError(t, err)

	n, err := engine.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bucket, err := store.Get(ctx, "basketball_nba", "60-70")
	require.NoError(t, err)
	assert.InDelta(t, 0.6/0.65, bucket.AdjustmentFactor, 1e-9)
	assert.Zero(t, bucket.PendingRecompute)
}
