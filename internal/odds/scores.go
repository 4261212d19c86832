package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// EventScore is the live scoreboard state for one event.
type EventScore struct {
	EventID    string    `json:"event_id"`
	Sport      string    `json:"sport"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	HomeScore  int       `json:"home_score"`
	AwayScore  int       `json:"away_score"`
	Completed  bool      `json:"completed"`
	LastUpdate time.Time `json:"last_update"`
}

// ScoreFetcher fetches live scores for one sport from the upstream.
type ScoreFetcher interface {
	FetchScores(ctx context.Context, sport string) ([]EventScore, *QuotaUsage, error)
}

// FetchScores implements ScoreFetcher against the upstream scores endpoint.
func (c *Client) FetchScores(ctx context.Context, sport string) ([]EventScore, *QuotaUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/sports/%s/scores", c.baseURL, url.PathEscape(sport))
	query := url.Values{"apiKey": {c.apiKey}}

	body, usage, err := c.getJSON(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return nil, usage, err
	}

	var payload []struct {
		ID          string    `json:"id"`
		HomeTeam    string    `json:"home_team"`
		AwayTeam    string    `json:"away_team"`
		Completed   bool      `json:"completed"`
		LastUpdate  time.Time `json:"last_update"`
		Scores      []struct {
			Name  string `json:"name"`
			Score string `json:"score"`
		} `json:"scores"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.DataQualityFaultsTotal.Inc()
		return nil, usage, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}

	scores := make([]EventScore, 0, len(payload))
	for _, e := range payload {
		if e.ID == "" {
			metrics.DataQualityFaultsTotal.Inc()
			return nil, usage, fmt.Errorf("%w: score entry with empty event id", models.ErrMalformedPayload)
		}
		es := EventScore{
			EventID:    e.ID,
			Sport:      sport,
			HomeTeam:   e.HomeTeam,
			AwayTeam:   e.AwayTeam,
			Completed:  e.Completed,
			LastUpdate: e.LastUpdate,
		}
		for _, s := range e.Scores {
			n, err := strconv.Atoi(s.Score)
			if err != nil {
				continue
			}
			switch s.Name {
			case e.HomeTeam:
				es.HomeScore = n
			case e.AwayTeam:
				es.AwayScore = n
			}
		}
		scores = append(scores, es)
	}
	return scores, usage, nil
}

// GetScores answers the sport's live scoreboard, cached for the score TTL
// and single-flighted per sport.
func (c *Cache) GetScores(ctx context.Context, sport string) ([]EventScore, error) {
	fetcher, ok := c.fetcher.(ScoreFetcher)
	if !ok {
		return nil, fmt.Errorf("upstream client does not fetch scores")
	}

	v, err := c.getCached(ctx, "scores:"+sport, c.ttls.ScoresTTL(), func(ctx context.Context) (interface{}, *QuotaUsage, error) {
		scores, usage, err := fetcher.FetchScores(ctx, sport)
		return scores, usage, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]EventScore), nil
}
