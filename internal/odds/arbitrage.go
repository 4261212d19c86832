package odds

import (
	"fmt"

	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// DetectArbitrage computes the sum of implied probabilities using the
// best price per outcome across all bookmakers. A sum below 1.0 is a
// guaranteed-profit opportunity; the returned legs carry the stake split
// that locks it in. Returns nil when no opportunity exists.
func (c *Cache) DetectArbitrage(eventID string, market models.MarketType) (*models.Arbitrage, error) {
	snap := c.lookup(snapshotKey(eventID, market))
	if snap == nil {
		return nil, fmt.Errorf("event %s market %s: %w", eventID, market, models.ErrNoQuotes)
	}

	outcomes := snap.Outcomes()
	if len(outcomes) < 2 {
		return nil, nil
	}

	impliedSum := 0.0
	legs := make([]models.ArbitrageLeg, 0, len(outcomes))
	for _, outcome := range outcomes {
		best := snap.BestQuote(outcome)
		if best == nil {
			return nil, nil
		}
		p := best.ImpliedProbability()
		if p <= 0 {
			return nil, nil
		}
		impliedSum += p
		legs = append(legs, models.ArbitrageLeg{
			Bookmaker:          best.Bookmaker,
			Outcome:            outcome,
			Price:              best.Price,
			DecimalPrice:       best.DecimalPrice(),
			ImpliedProbability: p,
		})
	}

	if impliedSum >= 1.0 {
		return nil, nil
	}

	// Staking each leg in proportion to its implied probability makes the
	// payout equal on every outcome; the guaranteed margin is 1/sum - 1.
	for i := range legs {
		legs[i].StakeFraction = legs[i].ImpliedProbability / impliedSum
	}

	metrics.ArbitrageFoundTotal.Inc()
	return &models.Arbitrage{
		EventID:       eventID,
		Market:        market,
		ImpliedSum:    impliedSum,
		ProfitPercent: (1.0/impliedSum - 1.0) * 100.0,
		Legs:          legs,
		FoundAt:       c.clock(),
	}, nil
}
