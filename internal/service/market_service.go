// Package service wires the market data cache, the ensemble predictor and
// the calibration engine into the operations the server exposes.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
	"github.com/siggy2543/mysportsbet-sub000/internal/odds"
)

// MarketService answers market data questions from the cache.
type MarketService struct {
	cache   *odds.Cache
	sports  *models.SportTable
	markets []models.MarketType
	logger  *logrus.Logger
}

// NewMarketService creates a market service over the odds cache
func NewMarketService(cache *odds.Cache, sports *models.SportTable, markets []models.MarketType, logger *logrus.Logger) *MarketService {
	return &MarketService{
		cache:   cache,
		sports:  sports,
		markets: markets,
		logger:  logger,
	}
}

// GetMarket returns the freshest snapshot for every configured market of
// the event.
func (s *MarketService) GetMarket(ctx context.Context, sport, eventID string) ([]*models.MarketSnapshot, error) {
	if _, err := s.sports.Lookup(sport); err != nil {
		return nil, err
	}
	return s.cache.GetSnapshots(ctx, sport, eventID, s.markets)
}

// BestPrice returns the most favorable cached quote for an outcome.
func (s *MarketService) BestPrice(eventID string, market models.MarketType, outcome string) (*models.Quote, error) {
	return s.cache.BestPrice(eventID, market, outcome)
}

// FindArbitrage refreshes the event's markets and scans each for a
// guaranteed-profit price combination.
func (s *MarketService) FindArbitrage(ctx context.Context, sport, eventID string) ([]*models.Arbitrage, error) {
	snapshots, err := s.GetMarket(ctx, sport, eventID)
	if err != nil {
		return nil, err
	}

	var found []*models.Arbitrage
	for _, snap := range snapshots {
		arb, err := s.cache.DetectArbitrage(eventID, snap.Market)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"event_id": eventID,
				"market":   snap.Market,
			}).WithError(err).Warn("Arbitrage scan failed for market")
			continue
		}
		if arb != nil {
			s.logger.WithFields(logrus.Fields{
				"event_id":       eventID,
				"market":         snap.Market,
				"profit_percent": arb.ProfitPercent,
			}).Info("Arbitrage opportunity detected")
			found = append(found, arb)
		}
	}
	return found, nil
}

// ListEvents returns the cached event list for a sport.
func (s *MarketService) ListEvents(ctx context.Context, sport string) ([]odds.Event, error) {
	if _, err := s.sports.Lookup(sport); err != nil {
		return nil, err
	}
	return s.cache.ListEvents(ctx, sport)
}

// Usage reports the upstream request budget state.
func (s *MarketService) Usage() odds.Usage {
	return s.cache.Usage()
}
