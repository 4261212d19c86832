package features

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// PriceSource answers the current best price for an outcome. Satisfied by
// the market data cache.
type PriceSource interface {
	BestPrice(eventID string, market models.MarketType, outcome string) (*models.Quote, error)
}

// Matchup identifies the event a feature vector is built for.
type Matchup struct {
	Sport    string
	EventID  string
	HomeTeam string
	AwayTeam string
	Outcome  string // the outcome being predicted, typically the home team
}

// Builder assembles feature vectors. Sentiment and injury sources are
// soft dependencies: when one fails the dimension falls back to neutral
// zero rather than blocking the prediction.
type Builder struct {
	prices    PriceSource
	stats     StatsSource
	sentiment SentimentSource
	injuries  InjurySource
	logger    *logrus.Logger
}

// NewBuilder creates a feature vector builder
func NewBuilder(prices PriceSource, stats StatsSource, sentiment SentimentSource, injuries InjurySource, logger *logrus.Logger) *Builder {
	return &Builder{
		prices:    prices,
		stats:     stats,
		sentiment: sentiment,
		injuries:  injuries,
		logger:    logger,
	}
}

// Build assembles the feature vector for one matchup. Team statistics are
// required; everything else degrades to neutral.
func (b *Builder) Build(ctx context.Context, m Matchup) (models.FeatureVector, error) {
	home, err := b.stats.TeamStats(ctx, m.Sport, m.HomeTeam)
	if err != nil {
		return models.FeatureVector{}, fmt.Errorf("failed to load home team stats: %w", err)
	}
	away, err := b.stats.TeamStats(ctx, m.Sport, m.AwayTeam)
	if err != nil {
		return models.FeatureVector{}, fmt.Errorf("failed to load away team stats: %w", err)
	}

	fv := models.FeatureVector{
		HomeStrength:  home.Strength,
		AwayStrength:  away.Strength,
		HomeFormDelta: home.FormDelta,
		AwayFormDelta: away.FormDelta,
		RestDaysDelta: home.RestDays - away.RestDays,
		// Home side does not travel; the penalty is the away side's burden,
		// normalized per thousand miles.
		TravelPenalty:     away.TravelMiles / 1000.0,
		MarketImpliedProb: b.marketImplied(m),
	}

	fv.SentimentScore = b.sentimentDelta(ctx, m)
	fv.InjuryImpact = b.injuryDelta(ctx, m)
	return fv, nil
}

// marketImplied reads the best moneyline price for the predicted outcome.
// No quote means no market signal; 0.5 keeps the dimension neutral.
func (b *Builder) marketImplied(m Matchup) float64 {
	quote, err := b.prices.BestPrice(m.EventID, models.MarketMoneyline, m.Outcome)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"event_id": m.EventID,
			"outcome":  m.Outcome,
		}).WithError(err).Debug("No market price for feature vector, using neutral prior")
		return 0.5
	}
	return quote.ImpliedProbability()
}

// sentimentDelta is home sentiment minus away sentiment.
func (b *Builder) sentimentDelta(ctx context.Context, m Matchup) float64 {
	home, err := b.sentiment.TeamSentiment(ctx, m.Sport, m.HomeTeam)
	if err != nil {
		b.warnSource(m, "sentiment", err)
		return 0
	}
	away, err := b.sentiment.TeamSentiment(ctx, m.Sport, m.AwayTeam)
	if err != nil {
		b.warnSource(m, "sentiment", err)
		return 0
	}
	return home - away
}

// injuryDelta is positive when the away side is more hurt than the home
// side, matching the home-oriented sign of the other dimensions.
func (b *Builder) injuryDelta(ctx context.Context, m Matchup) float64 {
	home, err := b.injuries.TeamInjuryImpact(ctx, m.Sport, m.HomeTeam)
	if err != nil {
		b.warnSource(m, "injuries", err)
		return 0
	}
	away, err := b.injuries.TeamInjuryImpact(ctx, m.Sport, m.AwayTeam)
	if err != nil {
		b.warnSource(m, "injuries", err)
		return 0
	}
	return away - home
}

func (b *Builder) warnSource(m Matchup, source string, err error) {
	b.logger.WithFields(logrus.Fields{
		"event_id": m.EventID,
		"source":   source,
	}).WithError(err).Warn("Feature source failed, dimension set to neutral")
}
