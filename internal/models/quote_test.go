package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalOdds(t *testing.T) {
	assert.InDelta(t, 2.5, DecimalOdds(150), 1e-9)
	assert.InDelta(t, 1.5, DecimalOdds(-200), 1e-9)
	assert.InDelta(t, 2.0, DecimalOdds(100), 1e-9)
	assert.Equal(t, 0.0, DecimalOdds(0))
}

func TestImpliedProbability(t *testing.T) {
	q := Quote{Price: 100}
	assert.InDelta(t, 0.5, q.ImpliedProbability(), 1e-9)

	q.Price = -110
	assert.InDelta(t, 110.0/210.0, q.ImpliedProbability(), 1e-9)

	q.Price = 150
	assert.InDelta(t, 0.4, q.ImpliedProbability(), 1e-9)
}

func TestBestQuoteTieBreak(t *testing.T) {
	snap := MarketSnapshot{
		EventID: "ev1",
		Market:  MarketMoneyline,
		Quotes: []Quote{
			{Bookmaker: "zeta", Outcome: "Lakers", Price: 110},
			{Bookmaker: "alpha", Outcome: "Lakers", Price: 110},
			{Bookmaker: "mid", Outcome: "Lakers", Price: 105},
		},
	}

	best := snap.BestQuote("Lakers")
	require.NotNil(t, best)
	// Equal prices tie-break lexically by bookmaker.
	assert.Equal(t, "alpha", best.Bookmaker)

	assert.Nil(t, snap.BestQuote("Celtics"))
}

func TestBestQuotePrefersHigherPayout(t *testing.T) {
	snap := MarketSnapshot{
		Quotes: []Quote{
			{Bookmaker: "a", Outcome: "Lakers", Price: -120},
			{Bookmaker: "b", Outcome: "Lakers", Price: 115},
		},
	}
	best := snap.BestQuote("Lakers")
	require.NotNil(t, best)
	assert.Equal(t, "b", best.Bookmaker)
}

func TestSnapshotOutcomesFirstSeenOrder(t *testing.T) {
	snap := MarketSnapshot{
		Quotes: []Quote{
			{Bookmaker: "a", Outcome: "Lakers", Price: 100},
			{Bookmaker: "a", Outcome: "Celtics", Price: -120},
			{Bookmaker: "b", Outcome: "Lakers", Price: 105},
		},
	}
	assert.Equal(t, []string{"Lakers", "Celtics"}, snap.Outcomes())
}

func TestImpliedProbabilitySpread(t *testing.T) {
	snap := MarketSnapshot{
		Quotes: []Quote{
			{Bookmaker: "a", Outcome: "Lakers", Price: 100},  // 0.5
			{Bookmaker: "b", Outcome: "Lakers", Price: -150}, // 0.6
		},
	}
	assert.InDelta(t, 0.1, snap.ImpliedProbabilitySpread("Lakers"), 1e-9)
	assert.Equal(t, 0.0, snap.ImpliedProbabilitySpread("Celtics"))
}

func TestSnapshotAge(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := MarketSnapshot{FetchedAt: fetched}
	assert.Equal(t, 5*time.Minute, snap.Age(fetched.Add(5*time.Minute)))
}
