package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// ReconnectConfig controls stream reconnection behavior.
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// streamMessage is one push update from the provider's odds feed.
type streamMessage struct {
	Type      string         `json:"type"` // "odds" or "heartbeat"
	Sport     string         `json:"sport"`
	EventID   string         `json:"event_id"`
	Market    string         `json:"market"`
	HomeTeam  string         `json:"home_team"`
	AwayTeam  string         `json:"away_team"`
	Timestamp time.Time      `json:"timestamp"`
	Quotes    []models.Quote `json:"quotes"`
}

// Stream consumes the provider's push feed and applies odds updates into
// the cache. Pushed snapshots follow the same last-writer-by-timestamp
// rule as pull refreshes, so a stale push never clobbers a newer fetch.
type Stream struct {
	url       string
	apiKey    string
	cache     *Cache
	reconnect ReconnectConfig
	logger    *logrus.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStream creates a push-feed consumer bound to a cache.
func NewStream(url, apiKey string, c *Cache, logger *logrus.Logger) *Stream {
	return &Stream{
		url:       url,
		apiKey:    apiKey,
		cache:     c,
		reconnect: DefaultReconnectConfig(),
		logger:    logger,
	}
}

// Run connects and consumes the feed until the context is cancelled,
// reconnecting with exponential backoff on connection loss.
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.reconnect.InitialBackoff
	retries := 0

	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			retries++
			if s.reconnect.MaxRetries > 0 && retries > s.reconnect.MaxRetries {
				return fmt.Errorf("stream gave up after %d reconnect attempts: %w", retries-1, err)
			}
			s.logger.WithError(err).WithField("backoff", backoff).Warn("Odds stream disconnected, reconnecting")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * s.reconnect.BackoffMultiplier)
			if backoff > s.reconnect.MaxBackoff {
				backoff = s.reconnect.MaxBackoff
			}
			continue
		}
		return nil
	}
}

// consume runs one connection lifetime.
func (s *Stream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("stream dial failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer conn.Close()

	auth := map[string]string{"op": "auth", "api_key": s.apiKey}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("stream auth failed: %w", err)
	}

	s.logger.WithField("url", s.url).Info("Odds stream connected")

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
		s.handleMessage(data)
	}
}

// handleMessage applies one feed message. Malformed messages are logged
// and dropped; the stream keeps reading.
func (s *Stream) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed stream message")
		return
	}
	if msg.Type != "odds" {
		return
	}

	market := models.MarketType(msg.Market)
	if !market.Valid() || msg.EventID == "" || len(msg.Quotes) == 0 {
		s.logger.WithFields(logrus.Fields{
			"event_id": msg.EventID,
			"market":   msg.Market,
		}).Warn("Dropping stream update with invalid shape")
		return
	}

	snap := &models.MarketSnapshot{
		EventID:   msg.EventID,
		Sport:     msg.Sport,
		Market:    market,
		HomeTeam:  msg.HomeTeam,
		AwayTeam:  msg.AwayTeam,
		Quotes:    msg.Quotes,
		FetchedAt: msg.Timestamp,
	}
	if s.cache.ApplyUpdate(snap) {
		s.logger.WithFields(logrus.Fields{
			"event_id": msg.EventID,
			"market":   msg.Market,
		}).Debug("Applied stream odds update")
	}
}
