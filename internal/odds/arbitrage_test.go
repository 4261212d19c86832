package odds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

func seedSnapshot(c *Cache, quotes ...models.Quote) {
	c.ApplyUpdate(&models.MarketSnapshot{
		EventID:   "ev1",
		Sport:     "basketball_nba",
		Market:    models.MarketMoneyline,
		Quotes:    quotes,
		FetchedAt: time.Now(),
	})
}

func TestDetectArbitrageFindsOpportunity(t *testing.T) {
	c := newTestCache(&fakeFetcher{}, 10)
	// +110 on both sides: implied 100/210 each, sum ~0.952.
	seedSnapshot(c,
		models.Quote{Bookmaker: "alpha", Outcome: "Lakers", Price: 110},
		models.Quote{Bookmaker: "beta", Outcome: "Celtics", Price: 110},
	)

	arb, err := c.DetectArbitrage("ev1", models.MarketMoneyline)
	require.NoError(t, err)
	require.NotNil(t, arb)

	assert.InDelta(t, 200.0/210.0, arb.ImpliedSum, 1e-9)
	assert.InDelta(t, 5.0, arb.ProfitPercent, 1e-9)
	require.Len(t, arb.Legs, 2)
	assert.InDelta(t, 0.5, arb.Legs[0].StakeFraction, 1e-9)
	assert.InDelta(t, 0.5, arb.Legs[1].StakeFraction, 1e-9)
	assert.InDelta(t, 1.0, arb.Legs[0].StakeFraction+arb.Legs[1].StakeFraction, 1e-9)
}

func TestDetectArbitrageUsesBestPricePerOutcome(t *testing.T) {
	c := newTestCache(&fakeFetcher{}, 10)
	seedSnapshot(c,
		models.Quote{Bookmaker: "alpha", Outcome: "Lakers", Price: -110},
		models.Quote{Bookmaker: "beta", Outcome: "Lakers", Price: 115},
		models.Quote{Bookmaker: "alpha", Outcome: "Celtics", Price: 105},
	)

	arb, err := c.DetectArbitrage("ev1", models.MarketMoneyline)
	require.NoError(t, err)
	require.NotNil(t, arb)

	for _, leg := range arb.Legs {
		if leg.Outcome == "Lakers" {
			assert.Equal(t, "beta", leg.Bookmaker)
			assert.Equal(t, 115, leg.Price)
		}
	}
}

func TestDetectArbitrageNoneWhenSumAtLeastOne(t *testing.T) {
	c := newTestCache(&fakeFetcher{}, 10)
	// Standard -110 vig on both sides: sum ~1.048.
	seedSnapshot(c,
		models.Quote{Bookmaker: "alpha", Outcome: "Lakers", Price: -110},
		models.Quote{Bookmaker: "beta", Outcome: "Celtics", Price: -110},
	)

	arb, err := c.DetectArbitrage("ev1", models.MarketMoneyline)
	require.NoError(t, err)
	assert.Nil(t, arb)
}

func TestDetectArbitrageNeedsTwoOutcomes(t *testing.T) {
	c := newTestCache(&fakeFetcher{}, 10)
	seedSnapshot(c, models.Quote{Bookmaker: "alpha", Outcome: "Lakers", Price: 500})

	arb, err := c.DetectArbitrage("ev1", models.MarketMoneyline)
	require.NoError(t, err)
	assert.Nil(t, arb)
}

func TestDetectArbitrageNoSnapshot(t *testing.T) {
	c := newTestCache(&fakeFetcher{}, 10)
	_, err := c.DetectArbitrage("missing", models.MarketMoneyline)
	assert.ErrorIs(t, err, models.ErrNoQuotes)
}
