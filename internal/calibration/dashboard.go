package calibration

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/repository"
)

// FeatureImportance ranks one feature by the strength of its relationship
// with prediction correctness over the settled sample.
type FeatureImportance struct {
	Feature     string  `json:"feature"`
	Correlation float64 `json:"correlation"`
}

// Report is the performance dashboard built from settled predictions and
// the current calibration state.
type Report struct {
	GeneratedAt       time.Time                  `json:"generated_at"`
	TotalBets         int                        `json:"total_bets"`
	WinRate           float64                    `json:"win_rate"`
	TotalStaked       decimal.Decimal            `json:"total_staked"`
	TotalProfitLoss   decimal.Decimal            `json:"total_profit_loss"`
	ROI               decimal.Decimal            `json:"roi"`
	AvgConfidence     float64                    `json:"avg_confidence"`
	CalibrationError  float64                    `json:"calibration_error"`
	KellyEfficiency   float64                    `json:"kelly_efficiency"`
	Buckets           []models.CalibrationBucket `json:"buckets"`
	FeatureImportance []FeatureImportance        `json:"feature_importance"`
	Recommendations   []string                   `json:"recommendations"`
}

// Dashboard assembles performance reports.
type Dashboard struct {
	outcomes      repository.OutcomeRepository
	store         BucketStore
	minSampleSize int64
	clock         func() time.Time
}

// NewDashboard creates a dashboard over the settled outcome history
func NewDashboard(outcomes repository.OutcomeRepository, store BucketStore, minSampleSize int64) *Dashboard {
	return &Dashboard{
		outcomes:      outcomes,
		store:         store,
		minSampleSize: minSampleSize,
		clock:         time.Now,
	}
}

// Build computes the report over the most recent settled predictions.
func (d *Dashboard) Build(ctx context.Context, limit int) (*Report, error) {
	settled, err := d.outcomes.ListSettled(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load settled predictions: %w", err)
	}
	buckets, err := d.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration buckets: %w", err)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Sport != buckets[j].Sport {
			return buckets[i].Sport < buckets[j].Sport
		}
		return buckets[i].Bucket < buckets[j].Bucket
	})

	report := &Report{
		GeneratedAt:     d.clock(),
		TotalBets:       len(settled),
		TotalStaked:     decimal.Zero,
		TotalProfitLoss: decimal.Zero,
		ROI:             decimal.Zero,
		Buckets:         buckets,
	}

	wins := 0
	confidenceSum := 0.0
	for i := range settled {
		s := &settled[i]
		if s.Outcome.Correct {
			wins++
		}
		confidenceSum += s.Prediction.CalibConfidence
		report.TotalStaked = report.TotalStaked.Add(s.Outcome.Stake)
		report.TotalProfitLoss = report.TotalProfitLoss.Add(s.Outcome.ProfitLoss)
	}
	if len(settled) > 0 {
		report.WinRate = float64(wins) / float64(len(settled))
		report.AvgConfidence = confidenceSum / float64(len(settled))
	}
	if !report.TotalStaked.IsZero() {
		report.ROI = report.TotalProfitLoss.Div(report.TotalStaked)
	}

	report.CalibrationError = d.calibrationError(buckets)
	report.KellyEfficiency = kellyEfficiency(settled)
	report.FeatureImportance = featureImportance(settled)
	report.Recommendations = d.recommendations(report, buckets)

	return report, nil
}

// calibrationError is the mean absolute gap between what the calibrated
// confidence claims and what the bucket actually delivered, over buckets
// with enough samples to judge.
func (d *Dashboard) calibrationError(buckets []models.CalibrationBucket) float64 {
	sum, n := 0.0, 0
	for i := range buckets {
		b := &buckets[i]
		if b.Predictions < d.minSampleSize {
			continue
		}
		claimed := b.AverageRawConfidence() * b.AdjustmentFactor
		sum += math.Abs(claimed - b.Accuracy())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// kellyEfficiency compares realized return against the edge the Kelly
// criterion expected from the calibrated probabilities. 1.0 means the
// book paid out exactly what the model's edge predicted; below 1.0 the
// model is overestimating its edge.
func kellyEfficiency(settled []repository.SettledPrediction) float64 {
	expectedEdge := 0.0
	realized := 0.0
	n := 0
	for i := range settled {
		s := &settled[i]
		dec := models.DecimalOdds(s.Prediction.Price)
		if dec <= 1 {
			continue
		}
		p := s.Prediction.CalibConfidence / 100.0
		expectedEdge += p*(dec-1) - (1 - p)
		roi, _ := s.Outcome.ROI().Float64()
		realized += roi
		n++
	}
	if n == 0 || expectedEdge <= 0 {
		return 0
	}
	return realized / expectedEdge
}

// featureImportance computes the Pearson correlation between each feature
// value at prediction time and the realized correctness, sorted by
// absolute strength. Predictions without a stored feature snapshot are
// skipped.
func featureImportance(settled []repository.SettledPrediction) []FeatureImportance {
	samples := make(map[string][]float64, len(models.FeatureNames))
	var outcomes []float64

	for i := range settled {
		s := &settled[i]
		features, err := s.Prediction.FeatureValues()
		if err != nil || features == nil {
			continue
		}
		y := 0.0
		if s.Outcome.Correct {
			y = 1.0
		}
		outcomes = append(outcomes, y)
		for _, name := range models.FeatureNames {
			samples[name] = append(samples[name], features[name])
		}
	}
	if len(outcomes) < 2 {
		return nil
	}

	out := make([]FeatureImportance, 0, len(models.FeatureNames))
	for _, name := range models.FeatureNames {
		out = append(out, FeatureImportance{
			Feature:     name,
			Correlation: pearson(samples[name], outcomes),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i].Correlation) > math.Abs(out[j].Correlation)
	})
	return out
}

func pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0
	}
	n := float64(len(xs))
	meanX, meanY := 0.0, 0.0
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	cov, varX, varY := 0.0, 0.0, 0.0
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// recommendations emits plain-text guidance from the report's headline
// numbers. Thresholds are deliberately coarse; the dashboard flags, a
// human decides.
func (d *Dashboard) recommendations(r *Report, buckets []models.CalibrationBucket) []string {
	var recs []string

	if r.TotalBets < int(d.minSampleSize) {
		recs = append(recs, fmt.Sprintf("Only %d settled bets; conclusions below %d samples are noise.", r.TotalBets, d.minSampleSize))
		return recs
	}
	if r.ROI.IsNegative() {
		recs = append(recs, fmt.Sprintf("Overall ROI is %s; reduce stake sizes until calibration improves.", r.ROI.StringFixed(4)))
	}
	if r.CalibrationError > 0.10 {
		recs = append(recs, fmt.Sprintf("Calibration error %.3f exceeds 0.10; confidence is drifting from realized accuracy.", r.CalibrationError))
	}
	if r.KellyEfficiency > 0 && r.KellyEfficiency < 0.5 {
		recs = append(recs, fmt.Sprintf("Kelly efficiency %.2f; realized returns lag the modeled edge, consider fractional Kelly.", r.KellyEfficiency))
	}
	for i := range buckets {
		b := &buckets[i]
		if b.Predictions >= d.minSampleSize && b.AdjustmentFactor < 0.85 {
			recs = append(recs, fmt.Sprintf("Bucket %s/%s is overconfident (factor %.2f over %d predictions).", b.Sport, b.Bucket, b.AdjustmentFactor, b.Predictions))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Calibration and returns are within expected bounds.")
	}
	return recs
}
