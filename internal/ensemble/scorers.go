// Package ensemble combines four independently trained sub-models into a
// single win-probability estimate with an inter-model agreement score.
package ensemble

import (
	"fmt"
	"math"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// probFloor and probCeil bound every sub-model probability before
// combination so no model can claim degenerate certainty.
const (
	probFloor = 0.01
	probCeil  = 0.99
)

func clampProb(p float64) float64 {
	return math.Min(probCeil, math.Max(probFloor, p))
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// SubModel is one tagged entry of the ensemble: a model kind, its
// configured weight and its scoring function. Representing the ensemble
// as a flat tagged list keeps weight redistribution and fallback explicit.
type SubModel struct {
	Kind    models.ModelKind
	Weight  float64
	Predict func(fv models.FeatureVector) (float64, error)
}

// SequenceParams are the trained coefficients of the sequence model. The
// recency decay discounts older form relative to current strength.
type SequenceParams struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
	Decay   float64   `json:"decay"`
}

// Score weights recent-form inputs by time order before the logistic.
func (p *SequenceParams) Score(fv models.FeatureVector) (float64, error) {
	values := fv.Values()
	if len(p.Weights) != len(values) {
		return 0, fmt.Errorf("sequence model expects %d weights, has %d", len(values), len(p.Weights))
	}
	decay := p.Decay
	if decay <= 0 || decay > 1 {
		decay = 1
	}
	z := p.Bias
	for i, v := range values {
		w := p.Weights[i]
		// Form deltas are the time-ordered inputs; everything else enters
		// undecayed.
		if models.FeatureNames[i] == "home_form_delta" || models.FeatureNames[i] == "away_form_delta" {
			w *= decay
		}
		z += w * v
	}
	return sigmoid(z), nil
}

// FeedForwardParams are the trained coefficients of the feed-forward
// network: one hidden tanh layer over the full feature set.
type FeedForwardParams struct {
	Hidden     [][]float64 `json:"hidden"`
	HiddenBias []float64   `json:"hidden_bias"`
	Output     []float64   `json:"output"`
	OutputBias float64     `json:"output_bias"`
}

// Score runs the forward pass.
func (p *FeedForwardParams) Score(fv models.FeatureVector) (float64, error) {
	values := fv.Values()
	if len(p.Hidden) == 0 || len(p.Hidden) != len(p.HiddenBias) || len(p.Hidden) != len(p.Output) {
		return 0, fmt.Errorf("feedforward model has inconsistent layer shapes")
	}
	activations := make([]float64, len(p.Hidden))
	for j, row := range p.Hidden {
		if len(row) != len(values) {
			return 0, fmt.Errorf("feedforward hidden row %d expects %d inputs, has %d", j, len(values), len(row))
		}
		z := p.HiddenBias[j]
		for i, v := range values {
			z += row[i] * v
		}
		activations[j] = math.Tanh(z)
	}
	z := p.OutputBias
	for j, a := range activations {
		z += p.Output[j] * a
	}
	return sigmoid(z), nil
}

// Stump is one decision stump of the gradient-boosted model.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// GradientBoostParams are the trained stumps of the boosted-tree model.
// Stump outputs accumulate in log-odds space.
type GradientBoostParams struct {
	Bias   float64 `json:"bias"`
	Stumps []Stump `json:"stumps"`
}

// Score sums the stump responses and squashes to a probability.
func (p *GradientBoostParams) Score(fv models.FeatureVector) (float64, error) {
	values := fv.Values()
	if len(p.Stumps) == 0 {
		return 0, fmt.Errorf("gradient boost model has no stumps")
	}
	z := p.Bias
	for _, s := range p.Stumps {
		if s.Feature < 0 || s.Feature >= len(values) {
			return 0, fmt.Errorf("gradient boost stump references feature %d of %d", s.Feature, len(values))
		}
		if values[s.Feature] <= s.Threshold {
			z += s.Left
		} else {
			z += s.Right
		}
	}
	return sigmoid(z), nil
}

// BaggedTree is one depth-one tree of the bagged ensemble. Leaves hold
// probabilities directly.
type BaggedTree struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	LeftProb  float64 `json:"left_prob"`
	RightProb float64 `json:"right_prob"`
}

// BaggedTreesParams are the trained trees of the bagged ensemble.
type BaggedTreesParams struct {
	Trees []BaggedTree `json:"trees"`
}

// Score averages the bootstrap trees' leaf probabilities.
func (p *BaggedTreesParams) Score(fv models.FeatureVector) (float64, error) {
	values := fv.Values()
	if len(p.Trees) == 0 {
		return 0, fmt.Errorf("bagged trees model has no trees")
	}
	sum := 0.0
	for _, t := range p.Trees {
		if t.Feature < 0 || t.Feature >= len(values) {
			return 0, fmt.Errorf("bagged tree references feature %d of %d", t.Feature, len(values))
		}
		if values[t.Feature] <= t.Threshold {
			sum += t.LeftProb
		} else {
			sum += t.RightProb
		}
	}
	return sum / float64(len(p.Trees)), nil
}
