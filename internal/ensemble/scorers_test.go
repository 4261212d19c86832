package ensemble

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

func zeroWeights() []float64 {
	return make([]float64, len(models.FeatureNames))
}

func TestSequenceScore(t *testing.T) {
	p := &SequenceParams{Bias: 0, Weights: zeroWeights(), Decay: 1.0}
	prob, err := p.Score(models.FeatureVector{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-9)

	// Positive bias pushes above a coin flip.
	p.Bias = 2.0
	prob, err = p.Score(models.FeatureVector{})
	require.NoError(t, err)
	assert.Greater(t, prob, 0.8)
}

func TestSequenceScoreAppliesDecayToFormDeltas(t *testing.T) {
	weights := zeroWeights()
	for i, name := range models.FeatureNames {
		if name == "home_form_delta" {
			weights[i] = 1.0
		}
	}
	fv := models.FeatureVector{HomeFormDelta: 1.0}

	full := &SequenceParams{Weights: weights, Decay: 1.0}
	decayed := &SequenceParams{Weights: weights, Decay: 0.5}

	pFull, err := full.Score(fv)
	require.NoError(t, err)
	pDecayed, err := decayed.Score(fv)
	require.NoError(t, err)

	assert.InDelta(t, sigmoid(1.0), pFull, 1e-9)
	assert.InDelta(t, sigmoid(0.5), pDecayed, 1e-9)
}

func TestSequenceScoreShapeMismatch(t *testing.T) {
	p := &SequenceParams{Weights: []float64{1, 2, 3}}
	_, err := p.Score(models.FeatureVector{})
	assert.Error(t, err)
}

func TestFeedForwardScore(t *testing.T) {
	dims := len(models.FeatureNames)
	p := &FeedForwardParams{
		Hidden:     [][]float64{make([]float64, dims)},
		HiddenBias: []float64{0},
		Output:     []float64{1},
		OutputBias: 0,
	}
	prob, err := p.Score(models.FeatureVector{})
	require.NoError(t, err)
	// tanh(0) = 0, sigmoid(0) = 0.5.
	assert.InDelta(t, 0.5, prob, 1e-9)
}

func TestFeedForwardScoreInconsistentShapes(t *testing.T) {
	p := &FeedForwardParams{Hidden: [][]float64{{1}}, HiddenBias: []float64{0, 0}, Output: []float64{1}}
	_, err := p.Score(models.FeatureVector{})
	assert.Error(t, err)
}

func TestGradientBoostScore(t *testing.T) {
	p := &GradientBoostParams{
		Bias: 0,
		Stumps: []Stump{
			{Feature: 0, Threshold: 0.5, Left: -1.0, Right: 1.0},
		},
	}

	low, err := p.Score(models.FeatureVector{HomeStrength: 0.3})
	require.NoError(t, err)
	high, err := p.Score(models.FeatureVector{HomeStrength: 0.8})
	require.NoError(t, err)

	assert.InDelta(t, sigmoid(-1.0), low, 1e-9)
	assert.InDelta(t, sigmoid(1.0), high, 1e-9)
}

func TestGradientBoostScoreBadFeatureIndex(t *testing.T) {
	p := &GradientBoostParams{Stumps: []Stump{{Feature: 99}}}
	_, err := p.Score(models.FeatureVector{})
	assert.Error(t, err)

	empty := &GradientBoostParams{}
	_, err = empty.Score(models.FeatureVector{})
	assert.Error(t, err)
}

func TestBaggedTreesScoreAveragesLeaves(t *testing.T) {
	p := &BaggedTreesParams{
		Trees: []BaggedTree{
			{Feature: 0, Threshold: 0.5, LeftProb: 0.4, RightProb: 0.8},
			{Feature: 0, Threshold: 0.5, LeftProb: 0.2, RightProb: 0.6},
		},
	}

	prob, err := p.Score(models.FeatureVector{HomeStrength: 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, prob, 1e-9)

	prob, err = p.Score(models.FeatureVector{HomeStrength: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, prob, 1e-9)
}

func TestClampProb(t *testing.T) {
	assert.Equal(t, probFloor, clampProb(0))
	assert.Equal(t, probCeil, clampProb(1))
	assert.Equal(t, probFloor, clampProb(math.Inf(-1)))
	assert.InDelta(t, 0.42, clampProb(0.42), 1e-9)
}

func TestArtifactsSubModelsOmitUntrained(t *testing.T) {
	arts := &Artifacts{
		Version: "v1",
		Sports: map[string]SportArtifact{
			"basketball_nba": {
				Sequence:    &SequenceParams{Weights: zeroWeights(), Decay: 1.0},
				BaggedTrees: &BaggedTreesParams{Trees: []BaggedTree{{Feature: 0, LeftProb: 0.5, RightProb: 0.5}}},
			},
		},
	}
	weights := map[models.ModelKind]float64{
		models.ModelSequence: 0.30,
		models.ModelBagged:   0.20,
	}

	subs := arts.SubModels("basketball_nba", weights)
	require.Len(t, subs, 2)
	assert.Equal(t, models.ModelSequence, subs[0].Kind)
	assert.Equal(t, models.ModelBagged, subs[1].Kind)

	assert.Nil(t, arts.SubModels("icehockey_nhl", weights))
}
