package ensemble

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// MarketProber answers the current best price from the market data cache.
// It is the only input the market-implied fallback may use.
type MarketProber interface {
	BestPrice(eventID string, market models.MarketType, outcome string) (*models.Quote, error)
}

// Request identifies one prediction: which outcome of which event, and
// the feature vector built for it.
type Request struct {
	Sport    string
	EventID  string
	Outcome  string
	Features models.FeatureVector
}

// Result is the raw ensemble output before calibration.
type Result struct {
	ModelProbs     map[models.ModelKind]float64
	Probability    float64
	Agreement      float64
	RawConfidence  float64 // 0-100
	ExpectedMargin float64
	Source         models.PredictionSource
}

// Predictor combines the trained sub-models into one probability.
type Predictor struct {
	weights   map[models.ModelKind]float64
	artifacts *Artifacts
	sports    *models.SportTable
	prober    MarketProber
	memo      *cache.Cache
	memoMax   int
	hits      atomic.Uint64
	misses    atomic.Uint64
	logger    *logrus.Logger
}

// NewPredictor builds the predictor from configuration, trained
// artifacts and the market prober used for fallback.
func NewPredictor(cfg config.EnsembleConfig, artifacts *Artifacts, sports *models.SportTable, prober MarketProber, logger *logrus.Logger) (*Predictor, error) {
	weights := make(map[models.ModelKind]float64, len(cfg.Weights))
	sum := 0.0
	for k, w := range cfg.Weights {
		weights[models.ModelKind(k)] = w
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return nil, fmt.Errorf("ensemble weights must sum to 1.0, got %v", sum)
	}

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &Predictor{
		weights:   weights,
		artifacts: artifacts,
		sports:    sports,
		prober:    prober,
		memo:      cache.New(ttl, ttl*2),
		memoMax:   cfg.CacheMaxSize,
		logger:    logger,
	}, nil
}

// memoKey builds the prediction memo key. The artifact version is part of
// the key so retrained models invalidate naturally.
func (p *Predictor) memoKey(req Request) string {
	return fmt.Sprintf("%s:%s:%s:%s", req.Sport, req.EventID, req.Outcome, p.artifacts.Version)
}

// Predict scores the request against every available sub-model and
// combines them. With zero models trained for the sport it falls back to
// the market-implied probability, tagged so consumers never mistake it
// for model output.
func (p *Predictor) Predict(req Request) (*Result, error) {
	sportCfg, err := p.sports.Lookup(req.Sport)
	if err != nil {
		return nil, err
	}

	if cached, found := p.memo.Get(p.memoKey(req)); found {
		p.hits.Add(1)
		p.updateMemoRatio()
		return cached.(*Result), nil
	}
	p.misses.Add(1)
	p.updateMemoRatio()

	start := time.Now()
	defer func() {
		metrics.PredictionLatency.Observe(time.Since(start).Seconds())
	}()

	subs := p.artifacts.SubModels(req.Sport, p.weights)
	metrics.ModelsAvailable.WithLabelValues(req.Sport).Set(float64(len(subs)))

	result, err := p.combine(req, subs, sportCfg)
	if err != nil {
		return nil, err
	}

	if p.memo.ItemCount() >= p.memoMax {
		p.memo.DeleteExpired()
	}
	p.memo.Set(p.memoKey(req), result, cache.DefaultExpiration)
	metrics.PredictionsTotal.WithLabelValues(req.Sport, string(result.Source)).Inc()
	return result, nil
}

// combine runs the weighted mean + agreement computation, or the market
// fallback when no sub-model is available.
func (p *Predictor) combine(req Request, subs []SubModel, sportCfg models.SportConfig) (*Result, error) {
	probs := make(map[models.ModelKind]float64, len(subs))
	var scored []SubModel
	for _, sub := range subs {
		prob, err := sub.Predict(req.Features)
		if err != nil {
			// One broken sub-model degrades to weight redistribution,
			// exactly like an untrained one.
			p.logger.WithFields(logrus.Fields{
				"sport": req.Sport,
				"model": sub.Kind,
			}).WithError(err).Warn("Sub-model scoring failed, redistributing its weight")
			continue
		}
		probs[sub.Kind] = clampProb(prob)
		scored = append(scored, sub)
	}

	if len(scored) == 0 {
		return p.marketFallback(req, sportCfg)
	}

	// Redistribute missing weight proportionally so the effective weights
	// always sum to 1.
	totalWeight := 0.0
	for _, sub := range scored {
		totalWeight += sub.Weight
	}
	if totalWeight <= 0 {
		return nil, fmt.Errorf("available sub-models carry zero total weight")
	}

	ensemble := 0.0
	for _, sub := range scored {
		ensemble += (sub.Weight / totalWeight) * probs[sub.Kind]
	}

	agreement := agreementScore(probValues(probs))
	raw := rawConfidence(ensemble, agreement)

	return &Result{
		ModelProbs:     probs,
		Probability:    ensemble,
		Agreement:      agreement,
		RawConfidence:  raw,
		ExpectedMargin: sportCfg.ExpectedMargin(ensemble),
		Source:         models.SourceModel,
	}, nil
}

// marketFallback derives the probability purely from the cache's best
// price. Feature values are deliberately ignored here.
func (p *Predictor) marketFallback(req Request, sportCfg models.SportConfig) (*Result, error) {
	quote, err := p.prober.BestPrice(req.EventID, models.MarketMoneyline, req.Outcome)
	if err != nil {
		return nil, fmt.Errorf("%w: market fallback has no price either: %v", models.ErrNoModelsAvailable, err)
	}

	prob := clampProb(quote.ImpliedProbability())
	p.logger.WithFields(logrus.Fields{
		"sport":    req.Sport,
		"event_id": req.EventID,
	}).Warn("No trained models for sport, serving market-implied fallback")

	return &Result{
		ModelProbs:     map[models.ModelKind]float64{},
		Probability:    prob,
		Agreement:      0,
		RawConfidence:  rawConfidence(prob, 1.0),
		ExpectedMargin: sportCfg.ExpectedMargin(prob),
		Source:         models.SourceMarketFallback,
	}, nil
}

func probValues(probs map[models.ModelKind]float64) []float64 {
	vals := make([]float64, 0, len(probs))
	for _, p := range probs {
		vals = append(vals, p)
	}
	return vals
}

// agreementScore measures inter-model consensus: 1 minus the standard
// deviation of the sub-model probabilities over the maximum possible
// spread (0.5), clamped to [0, 1]. A single model trivially agrees with
// itself.
func agreementScore(probs []float64) float64 {
	if len(probs) <= 1 {
		return 1.0
	}
	mean := 0.0
	for _, p := range probs {
		mean += p
	}
	mean /= float64(len(probs))

	variance := 0.0
	for _, p := range probs {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(probs))

	score := 1.0 - math.Sqrt(variance)/0.5
	return math.Min(1.0, math.Max(0.0, score))
}

// rawConfidence maps the ensemble probability and agreement to a 0-100
// confidence. Agreement dampens multiplicatively: disagreeing models
// lower confidence even when the mean probability is extreme.
func rawConfidence(probability, agreement float64) float64 {
	strength := math.Max(probability, 1.0-probability)
	return strength * agreement * 100.0
}

func (p *Predictor) updateMemoRatio() {
	hits := p.hits.Load()
	total := hits + p.misses.Load()
	if total == 0 {
		return
	}
	metrics.PredictionCacheHitRatio.Set(float64(hits) / float64(total))
}
