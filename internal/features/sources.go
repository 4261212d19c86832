// Package features assembles the fixed-width feature vector consumed by
// the ensemble from team statistics, sentiment and injury signals plus
// the live market.
package features

import "context"

// TeamStats is the statistical profile of one team entering a matchup.
type TeamStats struct {
	Strength  float64 // long-run rating, roughly [0, 1]
	FormDelta float64 // recent form relative to the rating, signed
	RestDays  float64
	TravelMiles float64
}

// StatsSource supplies team statistical profiles.
type StatsSource interface {
	TeamStats(ctx context.Context, sport, team string) (TeamStats, error)
}

// SentimentSource supplies an aggregate sentiment score for a team,
// signed around zero.
type SentimentSource interface {
	TeamSentiment(ctx context.Context, sport, team string) (float64, error)
}

// InjurySource supplies the estimated win-probability impact of a team's
// current injury list, zero meaning fully healthy.
type InjurySource interface {
	TeamInjuryImpact(ctx context.Context, sport, team string) (float64, error)
}

// StaticStats is a fixed-table StatsSource for local runs and tests.
type StaticStats map[string]TeamStats

// TeamStats returns the table entry, or a neutral profile when absent.
func (s StaticStats) TeamStats(_ context.Context, _ string, team string) (TeamStats, error) {
	if stats, ok := s[team]; ok {
		return stats, nil
	}
	return TeamStats{Strength: 0.5}, nil
}

// NeutralSentiment is a SentimentSource that always reports zero.
type NeutralSentiment struct{}

func (NeutralSentiment) TeamSentiment(context.Context, string, string) (float64, error) {
	return 0, nil
}

// NeutralInjuries is an InjurySource that always reports zero impact.
type NeutralInjuries struct{}

func (NeutralInjuries) TeamInjuryImpact(context.Context, string, string) (float64, error) {
	return 0, nil
}
