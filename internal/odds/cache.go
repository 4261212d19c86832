// Package odds implements the market data cache: normalized bookmaker
// quotes fetched under a metered request budget, answered from cache
// whenever the snapshot is still inside its TTL window.
package odds

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// retention is how long an entry may outlive its TTL before the sweep
// removes it. Expired-but-retained entries back the stale fallback.
const retention = 24 * time.Hour

// Cache owns the MarketSnapshot lifecycle. Entries are replaced whole,
// never patched, and a replacement only lands when its fetch timestamp is
// newer than the held snapshot's.
type Cache struct {
	store   *cache.Cache
	group   singleflight.Group
	fetcher Fetcher
	budget  *Budget
	ttls    config.CacheConfig
	logger  *logrus.Logger
	clock   func() time.Time

	// mu serializes read-modify-write commits per cache instance. Fetches
	// never run under it; it only covers the timestamp comparison swap.
	mu sync.Mutex
}

// NewCache creates a market data cache over the given fetcher and budget.
func NewCache(fetcher Fetcher, budget *Budget, ttls config.CacheConfig, logger *logrus.Logger) *Cache {
	return &Cache{
		// Entries carry no go-cache TTL: freshness is judged against
		// FetchedAt so expired snapshots stay available for stale serves
		// until the sweep removes them.
		store:   cache.New(cache.NoExpiration, 0),
		fetcher: fetcher,
		budget:  budget,
		ttls:    ttls,
		logger:  logger,
		clock:   time.Now,
	}
}

func snapshotKey(eventID string, market models.MarketType) string {
	return fmt.Sprintf("snap:%s:%s", eventID, market)
}

// GetSnapshots returns the freshest snapshot for each requested market,
// preferring cache over upstream fetch. A market whose upstream payload
// is malformed is skipped; the other markets still come back.
func (c *Cache) GetSnapshots(ctx context.Context, sport, eventID string, markets []models.MarketType) ([]*models.MarketSnapshot, error) {
	snapshots := make([]*models.MarketSnapshot, 0, len(markets))
	var lastErr error
	for _, market := range markets {
		if !market.Valid() {
			return nil, fmt.Errorf("market %q: %w", market, models.ErrUnknownMarket)
		}
		snap, err := c.getSnapshot(ctx, sport, eventID, market)
		if err != nil {
			// DataQualityFault and UpstreamUnavailable without a cached
			// entry degrade to a partial result, never a hard failure.
			lastErr = err
			continue
		}
		snapshots = append(snapshots, snap)
	}
	if len(snapshots) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return snapshots, nil
}

// getSnapshot serves one event+market key. Concurrent callers for the
// same key share a single upstream fetch.
func (c *Cache) getSnapshot(ctx context.Context, sport, eventID string, market models.MarketType) (*models.MarketSnapshot, error) {
	key := snapshotKey(eventID, market)

	if snap := c.lookup(key); snap != nil && c.fresh(snap) {
		metrics.CacheHitsTotal.Inc()
		return withStale(snap, false), nil
	}
	metrics.CacheMissesTotal.Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A fetch that finished while this caller queued makes the
		// upstream call unnecessary.
		if snap := c.lookup(key); snap != nil && c.fresh(snap) {
			return withStale(snap, false), nil
		}

		if err := c.budget.Acquire(); err != nil {
			if snap := c.lookup(key); snap != nil {
				metrics.StaleServesTotal.Inc()
				c.logger.WithField("key", key).Warn("Budget exhausted, serving stale snapshot")
				return withStale(snap, true), nil
			}
			return nil, err
		}

		// The shared fetch must not die with the first caller; the
		// client enforces the per-request timeout.
		snap, usage, err := c.fetcher.FetchMarket(context.WithoutCancel(ctx), sport, eventID, market)
		if usage != nil {
			c.budget.Sync(usage.Used, usage.Remaining)
		}
		if err != nil {
			if cached := c.lookup(key); cached != nil {
				metrics.StaleServesTotal.Inc()
				c.logger.WithField("key", key).WithError(err).Warn("Upstream fetch failed, serving stale snapshot")
				return withStale(cached, true), nil
			}
			return nil, err
		}

		c.commit(key, snap)
		return withStale(snap, false), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.MarketSnapshot), nil
}

// lookup returns the held snapshot for a key, fresh or not.
func (c *Cache) lookup(key string) *models.MarketSnapshot {
	if v, ok := c.store.Get(key); ok {
		return v.(*models.MarketSnapshot)
	}
	return nil
}

func (c *Cache) fresh(snap *models.MarketSnapshot) bool {
	return snap.Age(c.clock()) < c.ttls.OddsTTL()
}

// commit atomically replaces the cache entry, keeping whichever snapshot
// was fetched later. A slow refresh that lands after a newer one is
// discarded.
func (c *Cache) commit(key string, snap *models.MarketSnapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if held := c.lookup(key); held != nil && !snap.FetchedAt.After(held.FetchedAt) {
		return false
	}
	c.store.Set(key, snap, cache.NoExpiration)
	metrics.SnapshotCacheSize.Set(float64(c.store.ItemCount()))
	return true
}

// ApplyUpdate merges a push-fed snapshot with the same
// last-writer-by-timestamp rule as refreshes. Returns whether the update
// landed.
func (c *Cache) ApplyUpdate(snap *models.MarketSnapshot) bool {
	if snap == nil || snap.EventID == "" || !snap.Market.Valid() {
		return false
	}
	return c.commit(snapshotKey(snap.EventID, snap.Market), snap)
}

// BestPrice scans the current snapshot and returns the most favorable
// quote for the bettor, tie-broken lexically by bookmaker.
func (c *Cache) BestPrice(eventID string, market models.MarketType, outcome string) (*models.Quote, error) {
	snap := c.lookup(snapshotKey(eventID, market))
	if snap == nil {
		return nil, fmt.Errorf("event %s market %s: %w", eventID, market, models.ErrNoQuotes)
	}
	best := snap.BestQuote(outcome)
	if best == nil {
		return nil, fmt.Errorf("event %s market %s outcome %s: %w", eventID, market, outcome, models.ErrNoQuotes)
	}
	return best, nil
}

// Usage reports the upstream request budget state.
func (c *Cache) Usage() Usage {
	return c.budget.Usage()
}

// Sweep drops entries that have outlived the stale-serve retention.
// Returns the number of entries removed.
func (c *Cache) Sweep() int {
	now := c.clock()
	removed := 0
	for key, item := range c.store.Items() {
		var age time.Duration
		switch v := item.Object.(type) {
		case *models.MarketSnapshot:
			age = v.Age(now)
		case *listEntry:
			age = now.Sub(v.fetchedAt)
		default:
			c.store.Delete(key)
			removed++
			continue
		}
		if age > retention {
			c.store.Delete(key)
			removed++
		}
	}
	metrics.SnapshotCacheSize.Set(float64(c.store.ItemCount()))
	return removed
}

// listEntry wraps a cached auxiliary value (event list, scoreboard) with
// its fetch time so freshness is judged the same way as snapshots.
type listEntry struct {
	value     interface{}
	fetchedAt time.Time
}

// getCached runs the snapshot caching discipline (TTL check, per-key
// single-flight, budget acquire, stale fallback) for auxiliary upstream
// data that is not a MarketSnapshot.
func (c *Cache) getCached(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (interface{}, *QuotaUsage, error)) (interface{}, error) {
	entryFresh := func() (interface{}, bool) {
		if v, found := c.store.Get(key); found {
			if e, ok := v.(*listEntry); ok && c.clock().Sub(e.fetchedAt) < ttl {
				return e.value, true
			}
		}
		return nil, false
	}
	entryAny := func() (interface{}, bool) {
		if v, found := c.store.Get(key); found {
			if e, ok := v.(*listEntry); ok {
				return e.value, true
			}
		}
		return nil, false
	}

	if v, ok := entryFresh(); ok {
		metrics.CacheHitsTotal.Inc()
		return v, nil
	}
	metrics.CacheMissesTotal.Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := entryFresh(); ok {
			return v, nil
		}

		if err := c.budget.Acquire(); err != nil {
			if v, ok := entryAny(); ok {
				metrics.StaleServesTotal.Inc()
				c.logger.WithField("key", key).Warn("Budget exhausted, serving stale entry")
				return v, nil
			}
			return nil, err
		}

		value, usage, err := fetch(context.WithoutCancel(ctx))
		if usage != nil {
			c.budget.Sync(usage.Used, usage.Remaining)
		}
		if err != nil {
			if v, ok := entryAny(); ok {
				metrics.StaleServesTotal.Inc()
				c.logger.WithField("key", key).WithError(err).Warn("Upstream fetch failed, serving stale entry")
				return v, nil
			}
			return nil, err
		}

		c.store.Set(key, &listEntry{value: value, fetchedAt: c.clock()}, cache.NoExpiration)
		return value, nil
	})
	return v, err
}

// withStale returns a copy of the snapshot with the staleness flag set,
// leaving the cached entry untouched.
func withStale(snap *models.MarketSnapshot, stale bool) *models.MarketSnapshot {
	cp := *snap
	cp.Stale = stale
	return &cp
}
