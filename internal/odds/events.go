package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// Event is one upcoming or in-play event from the sport's event list.
type Event struct {
	ID           string    `json:"id"`
	Sport        string    `json:"sport"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
}

// EventLister fetches the event list for one sport from the upstream.
type EventLister interface {
	ListEvents(ctx context.Context, sport string) ([]Event, *QuotaUsage, error)
}

// ListEvents implements EventLister against the upstream events endpoint.
func (c *Client) ListEvents(ctx context.Context, sport string) ([]Event, *QuotaUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/sports/%s/events", c.baseURL, url.PathEscape(sport))
	query := url.Values{"apiKey": {c.apiKey}}

	resp, usage, err := c.getJSON(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return nil, usage, err
	}

	var payload []struct {
		ID           string    `json:"id"`
		HomeTeam     string    `json:"home_team"`
		AwayTeam     string    `json:"away_team"`
		CommenceTime time.Time `json:"commence_time"`
	}
	if err := json.Unmarshal(resp, &payload); err != nil {
		metrics.DataQualityFaultsTotal.Inc()
		return nil, usage, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}

	events := make([]Event, 0, len(payload))
	for _, e := range payload {
		if e.ID == "" {
			metrics.DataQualityFaultsTotal.Inc()
			return nil, usage, fmt.Errorf("%w: event with empty id", models.ErrMalformedPayload)
		}
		events = append(events, Event{
			ID:           e.ID,
			Sport:        sport,
			HomeTeam:     e.HomeTeam,
			AwayTeam:     e.AwayTeam,
			CommenceTime: e.CommenceTime,
		})
	}
	return events, usage, nil
}

// getJSON performs a budgetless GET against the upstream, returning the
// body and quota headers. Shared by the event list and score endpoints.
func (c *Client) getJSON(ctx context.Context, fullURL string) ([]byte, *QuotaUsage, error) {
	req, err := newRetryableGet(ctx, fullURL)
	if err != nil {
		return nil, nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("upstream fetch failed: %w", err)
	}
	defer resp.Body.Close()

	usage := parseQuotaHeaders(resp.Header)
	if resp.StatusCode != http.StatusOK {
		return nil, usage, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, usage, fmt.Errorf("failed to read response: %w", err)
	}
	return body, usage, nil
}

// ListEvents answers the sport's event list, cached for the event-list
// TTL and single-flighted per sport.
func (c *Cache) ListEvents(ctx context.Context, sport string) ([]Event, error) {
	lister, ok := c.fetcher.(EventLister)
	if !ok {
		return nil, fmt.Errorf("upstream client does not list events")
	}

	v, err := c.getCached(ctx, "events:"+sport, c.ttls.EventsTTL(), func(ctx context.Context) (interface{}, *QuotaUsage, error) {
		events, usage, err := lister.ListEvents(ctx, sport)
		return events, usage, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]Event), nil
}
