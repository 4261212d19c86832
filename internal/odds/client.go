package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/siggy2543/mysportsbet-sub000/internal/config"
	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// QuotaUsage carries the quota counters the upstream reports on every
// response.
type QuotaUsage struct {
	Used      int64
	Remaining int64
}

// Fetcher fetches the current market snapshot for one event+market from
// the upstream odds provider.
type Fetcher interface {
	FetchMarket(ctx context.Context, sport, eventID string, market models.MarketType) (*models.MarketSnapshot, *QuotaUsage, error)
}

// marketParam maps internal market types to the upstream's market keys.
var marketParam = map[models.MarketType]string{
	models.MarketMoneyline: "h2h",
	models.MarketSpread:    "spreads",
	models.MarketTotal:     "totals",
	models.MarketProp:      "player_props",
}

// paramMarket is the reverse mapping used when parsing payloads.
var paramMarket = func() map[string]models.MarketType {
	m := make(map[string]models.MarketType, len(marketParam))
	for k, v := range marketParam {
		m[v] = k
	}
	return m
}()

// Client is the rate-limited, retrying HTTP client for the upstream odds
// aggregator.
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	regions string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates an upstream odds client from configuration.
func NewClient(cfg config.OddsAPIConfig, logger *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.UpstreamTimeout()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.CheckRetry = oddsRetryPolicy()
	retryClient.Logger = nil

	return &Client{
		http:    retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		regions: strings.Join(cfg.Regions, ","),
		timeout: cfg.UpstreamTimeout(),
		logger:  logger,
	}
}

// oddsRetryPolicy retries network errors, 429 and 5xx responses.
func oddsRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}
		switch resp.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}

// newRetryableGet builds a GET request bound to the caller's context.
func newRetryableGet(ctx context.Context, fullURL string) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	return req, nil
}

// eventPayload mirrors the upstream per-event odds response.
type eventPayload struct {
	ID         string `json:"id"`
	SportKey   string `json:"sport_key"`
	HomeTeam   string `json:"home_team"`
	AwayTeam   string `json:"away_team"`
	Bookmakers []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key        string    `json:"key"`
			LastUpdate time.Time `json:"last_update"`
			Outcomes   []struct {
				Name  string   `json:"name"`
				Price int      `json:"price"`
				Point *float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// FetchMarket fetches the odds for one event+market. Every call carries a
// fixed timeout; callers decide what to do with the stale cache entry on
// failure.
func (c *Client) FetchMarket(ctx context.Context, sport, eventID string, market models.MarketType) (*models.MarketSnapshot, *QuotaUsage, error) {
	param, ok := marketParam[market]
	if !ok {
		return nil, nil, fmt.Errorf("market %q: %w", market, models.ErrUnknownMarket)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/sports/%s/events/%s/odds", c.baseURL, url.PathEscape(sport), url.PathEscape(eventID))
	query := url.Values{
		"apiKey":     {c.apiKey},
		"regions":    {c.regions},
		"markets":    {param},
		"oddsFormat": {"american"},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build odds request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamFetchesTotal.WithLabelValues(string(market), "error").Inc()
		return nil, nil, fmt.Errorf("upstream odds fetch failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamFetchLatency.Observe(time.Since(start).Seconds())

	usage := parseQuotaHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamFetchesTotal.WithLabelValues(string(market), "error").Inc()
		return nil, usage, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.UpstreamFetchesTotal.WithLabelValues(string(market), "error").Inc()
		return nil, usage, fmt.Errorf("failed to read odds response: %w", err)
	}

	snapshot, err := parseEventPayload(body, sport, eventID, market)
	if err != nil {
		metrics.UpstreamFetchesTotal.WithLabelValues(string(market), "malformed").Inc()
		metrics.DataQualityFaultsTotal.Inc()
		c.logger.WithFields(logrus.Fields{
			"sport":    sport,
			"event_id": eventID,
			"market":   market,
		}).WithError(err).Warn("Rejected malformed upstream payload")
		return nil, usage, err
	}

	metrics.UpstreamFetchesTotal.WithLabelValues(string(market), "ok").Inc()
	return snapshot, usage, nil
}

// parseQuotaHeaders extracts the metered quota counters. Missing headers
// yield -1 so the budget keeps its local book-keeping.
func parseQuotaHeaders(h http.Header) *QuotaUsage {
	usage := &QuotaUsage{Used: -1, Remaining: -1}
	if v := h.Get("x-requests-used"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			usage.Used = n
		}
	}
	if v := h.Get("x-requests-remaining"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			usage.Remaining = n
		}
	}
	return usage
}

// parseEventPayload validates and normalizes one upstream event payload
// into a MarketSnapshot. Any structural problem is a data-quality fault.
func parseEventPayload(body []byte, sport, eventID string, market models.MarketType) (*models.MarketSnapshot, error) {
	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if payload.ID != eventID {
		return nil, fmt.Errorf("%w: event id %q does not match requested %q", models.ErrMalformedPayload, payload.ID, eventID)
	}

	snapshot := &models.MarketSnapshot{
		EventID:   eventID,
		Sport:     sport,
		Market:    market,
		HomeTeam:  payload.HomeTeam,
		AwayTeam:  payload.AwayTeam,
		FetchedAt: time.Now().UTC(),
	}

	// At most one quote per (bookmaker, outcome); later duplicates in the
	// payload supersede earlier ones the way newer quotes supersede old.
	index := make(map[string]int)
	for _, bm := range payload.Bookmakers {
		if bm.Key == "" {
			return nil, fmt.Errorf("%w: bookmaker with empty key", models.ErrMalformedPayload)
		}
		for _, m := range bm.Markets {
			kind, ok := paramMarket[m.Key]
			if !ok || kind != market {
				continue
			}
			for _, o := range m.Outcomes {
				if o.Name == "" || o.Price == 0 {
					return nil, fmt.Errorf("%w: outcome missing name or price", models.ErrMalformedPayload)
				}
				q := models.Quote{
					Bookmaker:  bm.Key,
					Market:     market,
					Outcome:    o.Name,
					Price:      o.Price,
					Line:       o.Point,
					ObservedAt: m.LastUpdate,
				}
				key := bm.Key + "|" + o.Name
				if i, dup := index[key]; dup {
					snapshot.Quotes[i] = q
					continue
				}
				index[key] = len(snapshot.Quotes)
				snapshot.Quotes = append(snapshot.Quotes, q)
			}
		}
	}

	if len(snapshot.Quotes) == 0 {
		return nil, fmt.Errorf("%w: no quotes for market %q", models.ErrMalformedPayload, market)
	}

	return snapshot, nil
}
