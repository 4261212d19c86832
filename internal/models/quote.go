package models

import (
	"math"
	"time"
)

// MarketType represents the type of betting market
type MarketType string

const (
	MarketMoneyline MarketType = "moneyline"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
	MarketProp      MarketType = "prop"
)

// Valid reports whether the market type is one of the supported markets.
func (m MarketType) Valid() bool {
	switch m {
	case MarketMoneyline, MarketSpread, MarketTotal, MarketProp:
		return true
	default:
		return false
	}
}

// Quote represents one bookmaker's price for one outcome of one market.
// Quotes are immutable; a newer quote supersedes an older one, it never
// mutates it.
type Quote struct {
	Bookmaker  string     `db:"bookmaker" json:"bookmaker" validate:"required"`
	Market     MarketType `db:"market" json:"market" validate:"required"`
	Outcome    string     `db:"outcome" json:"outcome" validate:"required"`
	Price      int        `db:"price" json:"price"` // American odds, signed
	Line       *float64   `db:"line" json:"line,omitempty"`
	ObservedAt time.Time  `db:"observed_at" json:"observed_at" validate:"required"`
}

// DecimalOdds converts a signed American price to decimal odds.
func DecimalOdds(price int) float64 {
	if price == 0 {
		return 0
	}
	if price > 0 {
		return 1.0 + float64(price)/100.0
	}
	return 1.0 + 100.0/math.Abs(float64(price))
}

// DecimalPrice converts the American price to decimal odds.
func (q *Quote) DecimalPrice() float64 {
	return DecimalOdds(q.Price)
}

// ImpliedProbability converts the American price to the bookmaker's
// implied probability, vig included.
func (q *Quote) ImpliedProbability() float64 {
	if q.Price == 0 {
		return 0
	}
	if q.Price > 0 {
		return 100.0 / (float64(q.Price) + 100.0)
	}
	abs := math.Abs(float64(q.Price))
	return abs / (abs + 100.0)
}

// BetterFor reports whether q pays the bettor more than other. Equal
// prices tie-break lexically by bookmaker so the scan is deterministic.
func (q *Quote) BetterFor(other *Quote) bool {
	if other == nil {
		return true
	}
	if q.DecimalPrice() != other.DecimalPrice() {
		return q.DecimalPrice() > other.DecimalPrice()
	}
	return q.Bookmaker < other.Bookmaker
}

// MarketSnapshot is the consolidated set of current quotes for one
// event+market. It holds at most one quote per (bookmaker, outcome) pair
// and is only ever replaced whole, never patched.
type MarketSnapshot struct {
	EventID   string     `json:"event_id"`
	Sport     string     `json:"sport"`
	Market    MarketType `json:"market"`
	HomeTeam  string     `json:"home_team,omitempty"`
	AwayTeam  string     `json:"away_team,omitempty"`
	Quotes    []Quote    `json:"quotes"`
	FetchedAt time.Time  `json:"fetched_at"`
	Stale     bool       `json:"stale"`
}

// Age returns how long ago the snapshot was fetched.
func (s *MarketSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Outcomes returns the distinct outcome labels present in the snapshot,
// in first-seen order.
func (s *MarketSnapshot) Outcomes() []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for i := range s.Quotes {
		o := s.Quotes[i].Outcome
		if _, ok := seen[o]; !ok {
			seen[o] = struct{}{}
			out = append(out, o)
		}
	}
	return out
}

// BestQuote returns the most favorable quote for the bettor on the given
// outcome, or nil when the outcome has no quotes.
func (s *MarketSnapshot) BestQuote(outcome string) *Quote {
	var best *Quote
	for i := range s.Quotes {
		q := &s.Quotes[i]
		if q.Outcome != outcome {
			continue
		}
		if q.BetterFor(best) {
			best = q
		}
	}
	return best
}

// ImpliedProbabilitySpread returns the spread between the highest and
// lowest implied probability across bookmakers for the given outcome.
func (s *MarketSnapshot) ImpliedProbabilitySpread(outcome string) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range s.Quotes {
		q := &s.Quotes[i]
		if q.Outcome != outcome {
			continue
		}
		p := q.ImpliedProbability()
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// ArbitrageLeg is one bookmaker/outcome pairing inside an arbitrage
// opportunity.
type ArbitrageLeg struct {
	Bookmaker          string  `json:"bookmaker"`
	Outcome            string  `json:"outcome"`
	Price              int     `json:"price"`
	DecimalPrice       float64 `json:"decimal_price"`
	ImpliedProbability float64 `json:"implied_probability"`
	StakeFraction      float64 `json:"stake_fraction"` // share of the bank placed on this leg
}

// Arbitrage is a price combination across bookmakers guaranteeing profit
// regardless of outcome.
type Arbitrage struct {
	EventID       string         `json:"event_id"`
	Market        MarketType     `json:"market"`
	ImpliedSum    float64        `json:"implied_sum"`
	ProfitPercent float64        `json:"profit_percent"`
	Legs          []ArbitrageLeg `json:"legs"`
	FoundAt       time.Time      `json:"found_at"`
}
