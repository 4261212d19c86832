package ensemble

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// SportArtifact holds the trained coefficients for one sport. A nil field
// means that sub-model has not been trained for the sport yet and is
// unavailable; its weight gets redistributed at prediction time.
type SportArtifact struct {
	Sequence      *SequenceParams      `json:"sequence,omitempty"`
	FeedForward   *FeedForwardParams   `json:"feedforward,omitempty"`
	GradientBoost *GradientBoostParams `json:"gradient_boost,omitempty"`
	BaggedTrees   *BaggedTreesParams   `json:"bagged_trees,omitempty"`
}

// Artifacts is a versioned set of per-sport model coefficients produced
// by the external training pipeline.
type Artifacts struct {
	Version string                   `json:"version"`
	Sports  map[string]SportArtifact `json:"sports"`
}

// LoadArtifacts reads a model artifact file. An empty path yields an
// empty artifact set: every sport then runs on the market-implied
// fallback until trained coefficients arrive.
func LoadArtifacts(path string) (*Artifacts, error) {
	if path == "" {
		return &Artifacts{Version: "none", Sports: map[string]SportArtifact{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifacts: %w", err)
	}

	arts := &Artifacts{}
	if err := json.Unmarshal(data, arts); err != nil {
		return nil, fmt.Errorf("failed to parse model artifacts: %w", err)
	}
	if arts.Version == "" {
		return nil, fmt.Errorf("model artifacts missing version")
	}
	if arts.Sports == nil {
		arts.Sports = map[string]SportArtifact{}
	}
	return arts, nil
}

// SubModels builds the tagged sub-model list for a sport from the trained
// artifacts and the configured weights. Untrained kinds are omitted.
func (a *Artifacts) SubModels(sport string, weights map[models.ModelKind]float64) []SubModel {
	art, ok := a.Sports[sport]
	if !ok {
		return nil
	}

	var subs []SubModel
	if art.Sequence != nil {
		subs = append(subs, SubModel{
			Kind:    models.ModelSequence,
			Weight:  weights[models.ModelSequence],
			Predict: art.Sequence.Score,
		})
	}
	if art.FeedForward != nil {
		subs = append(subs, SubModel{
			Kind:    models.ModelFeedForward,
			Weight:  weights[models.ModelFeedForward],
			Predict: art.FeedForward.Score,
		})
	}
	if art.GradientBoost != nil {
		subs = append(subs, SubModel{
			Kind:    models.ModelGradient,
			Weight:  weights[models.ModelGradient],
			Predict: art.GradientBoost.Score,
		})
	}
	if art.BaggedTrees != nil {
		subs = append(subs, SubModel{
			Kind:    models.ModelBagged,
			Weight:  weights[models.ModelBagged],
			Predict: art.BaggedTrees.Score,
		})
	}
	return subs
}
