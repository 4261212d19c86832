package models

import "encoding/json"

// FeatureNames lists the fixed dimensions of a FeatureVector, in the
// order the sub-models consume them.
var FeatureNames = []string{
	"home_strength",
	"away_strength",
	"home_form_delta",
	"away_form_delta",
	"rest_days_delta",
	"travel_penalty",
	"market_implied_prob",
	"sentiment_score",
	"injury_impact",
}

// FeatureVector is the fixed-width numeric input to the ensemble for one
// matchup. Built fresh per prediction request and never persisted
// directly; only the prediction output carries a snapshot of its values.
type FeatureVector struct {
	HomeStrength      float64 `json:"home_strength"`
	AwayStrength      float64 `json:"away_strength"`
	HomeFormDelta     float64 `json:"home_form_delta"`
	AwayFormDelta     float64 `json:"away_form_delta"`
	RestDaysDelta     float64 `json:"rest_days_delta"`
	TravelPenalty     float64 `json:"travel_penalty"`
	MarketImpliedProb float64 `json:"market_implied_prob"`
	SentimentScore    float64 `json:"sentiment_score"`
	InjuryImpact      float64 `json:"injury_impact"`
}

// Values returns the dimensions in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.HomeStrength,
		f.AwayStrength,
		f.HomeFormDelta,
		f.AwayFormDelta,
		f.RestDaysDelta,
		f.TravelPenalty,
		f.MarketImpliedProb,
		f.SentimentScore,
		f.InjuryImpact,
	}
}

// ToMap returns the named dimension values.
func (f FeatureVector) ToMap() map[string]float64 {
	values := f.Values()
	m := make(map[string]float64, len(values))
	for i, name := range FeatureNames {
		m[name] = values[i]
	}
	return m
}

// Marshal serializes the vector for storage on a PredictionRecord.
func (f FeatureVector) Marshal() (json.RawMessage, error) {
	return json.Marshal(f.ToMap())
}
