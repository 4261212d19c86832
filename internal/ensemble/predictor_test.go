package ensemble

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

type fakeProber struct {
	quote *models.Quote
	err   error
}

func (f *fakeProber) BestPrice(string, models.MarketType, string) (*models.Quote, error) {
	return f.quote, f.err
}

func testEnsembleConfig() config.EnsembleConfig {
	return config.EnsembleConfig{
		Weights: map[string]float64{
			"sequence":       0.30,
			"feedforward":    0.25,
			"gradient_boost": 0.25,
			"bagged_trees":   0.20,
		},
		CacheTTLSeconds: 60,
		CacheMaxSize:    100,
	}
}

func testSportTable(t *testing.T) *models.SportTable {
	t.Helper()
	table, err := models.NewSportTable([]models.SportConfig{
		{Key: "basketball_nba", Title: "NBA", MarginSlope: 12.0, Active: true},
	})
	require.NoError(t, err)
	return table
}

func newTestPredictor(t *testing.T, arts *Artifacts, prober MarketProber) *Predictor {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	p, err := NewPredictor(testEnsembleConfig(), arts, testSportTable(t), prober, log)
	require.NoError(t, err)
	return p
}

func constSub(kind models.ModelKind, weight, prob float64) SubModel {
	return SubModel{
		Kind:   kind,
		Weight: weight,
		Predict: func(models.FeatureVector) (float64, error) {
			return prob, nil
		},
	}
}

func errorSub(kind models.ModelKind, weight float64) SubModel {
	return SubModel{
		Kind:   kind,
		Weight: weight,
		Predict: func(models.FeatureVector) (float64, error) {
			return 0, errors.New("scoring failed")
		},
	}
}

func emptyArtifacts() *Artifacts {
	return &Artifacts{Version: "test", Sports: map[string]SportArtifact{}}
}

func TestNewPredictorRejectsBadWeights(t *testing.T) {
	cfg := testEnsembleConfig()
	cfg.Weights["sequence"] = 0.10

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	_, err := NewPredictor(cfg, emptyArtifacts(), testSportTable(t), &fakeProber{}, log)
	assert.Error(t, err)
}

func TestPredictRejectsUnknownSport(t *testing.T) {
	p := newTestPredictor(t, emptyArtifacts(), &fakeProber{})
	_, err := p.Predict(Request{Sport: "cricket_ipl", EventID: "ev1", Outcome: "X"})
	assert.ErrorIs(t, err, models.ErrUnknownSport)
}

func TestCombineWeightedMeanAndAgreement(t *testing.T) {
	p := newTestPredictor(t, emptyArtifacts(), &fakeProber{})
	sportCfg := models.SportConfig{Key: "basketball_nba", MarginSlope: 12.0, Active: true}

	subs := []SubModel{
		constSub(models.ModelSequence, 0.30, 0.6),
		constSub(models.ModelFeedForward, 0.20, 0.8),
	}
	res, err := p.combine(Request{Sport: "basketball_nba"}, subs, sportCfg)
	require.NoError(t, err)

	// Effective weights renormalize to 0.6 and 0.4.
	assert.InDelta(t, 0.6*0.6+0.4*0.8, res.Probability, 1e-9)
	// Probs {0.6, 0.8}: stddev 0.1, agreement 1 - 0.1/0.5 = 0.8.
	assert.InDelta(t, 0.8, res.Agreement, 1e-9)
	assert.InDelta(t, res.Probability*0.8*100, res.RawConfidence, 1e-9)
	assert.Equal(t, models.SourceModel, res.Source)
	assert.InDelta(t, sportCfg.ExpectedMargin(res.Probability), res.ExpectedMargin, 1e-9)
}

func TestCombineFourModelConsensus(t *testing.T) {
	p := newTestPredictor(t, emptyArtifacts(), &fakeProber{})
	sportCfg := models.SportConfig{Key: "basketball_nba", MarginSlope: 12.0, Active: true}

	subs := []SubModel{
		constSub(models.ModelSequence, 0.30, 0.70),
		constSub(models.ModelFeedForward, 0.25, 0.68),
		constSub(models.ModelGradient, 0.25, 0.72),
		constSub(models.ModelBagged, 0.20, 0.69),
	}
	res, err := p.combine(Request{Sport: "basketball_nba"}, subs, sportCfg)
	require.NoError(t, err)

	// 0.30*0.70 + 0.25*0.68 + 0.25*0.72 + 0.20*0.69 = 0.698.
	assert.InDelta(t, 0.698, res.Probability, 1e-9)
	// Tight cluster around 0.6975, stddev ~0.0148.
	assert.InDelta(t, 0.9704, res.Agreement, 1e-4)
	assert.InDelta(t, 67.74, res.RawConfidence, 0.01)
	assert.Equal(t, models.SourceModel, res.Source)
	assert.Len(t, res.ModelProbs, 4)
}

func TestCombineRedistributesFailedSubModel(t *testing.T) {
	p := newTestPredictor(t, emptyArtifacts(), &fakeProber{})
	sportCfg := models.SportConfig{Key: "basketball_nba", MarginSlope: 12.0, Active: true}

	subs := []SubModel{
		constSub(models.ModelSequence, 0.30, 0.7),
		errorSub(models.ModelFeedForward, 0.25),
		constSub(models.ModelGradient, 0.25, 0.7),
	}
	res, err := p.combine(Request{Sport: "basketball_nba"}, subs, sportCfg)
	require.NoError(t, err)

	// Survivors carry all the weight; both agree on 0.7.
	assert.InDelta(t, 0.7, res.Probability, 1e-9)
	assert.InDelta(t, 1.0, res.Agreement, 1e-9)
	assert.Len(t, res.ModelProbs, 2)
	assert.NotContains(t, res.ModelProbs, models.ModelFeedForward)
}

func TestCombineClampsDegenerateProbabilities(t *testing.T) {
	p := newTestPredictor(t, emptyArtifacts(), &fakeProber{})
	sportCfg := models.SportConfig{Key: "basketball_nba", MarginSlope: 12.0, Active: true}

	subs := []SubModel{constSub(models.ModelSequence, 0.30, 1.0)}
	res, err := p.combine(Request{Sport: "basketball_nba"}, subs, sportCfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.99, res.Probability, 1e-9)
}

func TestMarketFallbackWhenNoModels(t *testing.T) {
	prober := &fakeProber{quote: &models.Quote{Bookmaker: "pinnacle", Price: -150}}
	p := newTestPredictor(t, emptyArtifacts(), prober)

	res, err := p.Predict(Request{Sport: "basketball_nba", EventID: "ev1", Outcome: "Lakers"})
	require.NoError(t, err)

	assert.Equal(t, models.SourceMarketFallback, res.Source)
	assert.InDelta(t, 0.6, res.Probability, 1e-9)
	assert.Zero(t, res.Agreement)
	assert.Empty(t, res.ModelProbs)
}

func TestMarketFallbackWithoutPriceFails(t *testing.T) {
	prober := &fakeProber{err: models.ErrNoQuotes}
	p := newTestPredictor(t, emptyArtifacts(), prober)

	_, err := p.Predict(Request{Sport: "basketball_nba", EventID: "ev1", Outcome: "Lakers"})
	assert.ErrorIs(t, err, models.ErrNoModelsAvailable)
}

func TestPredictMemoizes(t *testing.T) {
	arts := &Artifacts{
		Version: "v1",
		Sports: map[string]SportArtifact{
			"basketball_nba": {
				Sequence: &SequenceParams{Bias: 0.5, Weights: make([]float64, len(models.FeatureNames)), Decay: 1.0},
			},
		},
	}
	p := newTestPredictor(t, arts, &fakeProber{})

	req := Request{Sport: "basketball_nba", EventID: "ev1", Outcome: "Lakers"}
	first, err := p.Predict(req)
	require.NoError(t, err)
	second, err := p.Predict(req)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), p.hits.Load())
	assert.Equal(t, uint64(1), p.misses.Load())
}

func TestAgreementScore(t *testing.T) {
	assert.Equal(t, 1.0, agreementScore(nil))
	assert.Equal(t, 1.0, agreementScore([]float64{0.7}))
	assert.InDelta(t, 1.0, agreementScore([]float64{0.6, 0.6, 0.6}), 1e-9)

	// Maximal disagreement drives the score toward zero.
	low := agreementScore([]float64{0.01, 0.99})
	assert.InDelta(t, 0.02, low, 1e-9)

	// More spread means less agreement.
	assert.Greater(t,
		agreementScore([]float64{0.68, 0.70, 0.72}),
		agreementScore([]float64{0.50, 0.70, 0.90}),
	)
}

func TestRawConfidenceUsesDistanceFromCoinFlip(t *testing.T) {
	// A confident "no" is as strong as a confident "yes".
	assert.InDelta(t, rawConfidence(0.3, 1.0), rawConfidence(0.7, 1.0), 1e-9)
	assert.InDelta(t, 70.0, rawConfidence(0.7, 1.0), 1e-9)
	assert.InDelta(t, 35.0, rawConfidence(0.7, 0.5), 1e-9)
}
