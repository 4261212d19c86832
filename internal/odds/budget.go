package odds

import (
	"sync"
	"time"

	"github.com/siggy2543/mysportsbet-sub000/internal/metrics"
	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// Usage reports the state of the upstream request budget.
type Usage struct {
	RequestsUsed      int64  `json:"requests_used"`
	RequestsRemaining int64  `json:"requests_remaining"`
	BudgetPeriod      string `json:"budget_period"`
}

// Budget is the metered upstream quota. It is the one piece of truly
// global mutable state in the core: every fetcher acquires from it before
// touching the upstream, and the counter re-seeds from the quota the
// upstream reports on each response.
type Budget struct {
	mu        sync.Mutex
	period    string
	quota     int64
	used      int64
	remaining int64
	clock     func() time.Time
}

// NewBudget creates a budget for the current period seeded with the
// configured quota. The upstream-reported numbers take over after the
// first fetch.
func NewBudget(quota int64) *Budget {
	b := &Budget{quota: quota, clock: time.Now}
	b.period = periodKey(b.clock())
	b.remaining = quota
	metrics.BudgetRemaining.Set(float64(quota))
	return b
}

// periodKey identifies a calendar-month budget period.
func periodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Acquire reserves one upstream request. It returns ErrBudgetExhausted
// once the remaining budget reaches zero; callers must then serve the
// last-known snapshot instead of fetching.
func (b *Budget) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()

	if b.remaining <= 0 {
		return models.ErrBudgetExhausted
	}
	b.remaining--
	b.used++
	metrics.BudgetRemaining.Set(float64(b.remaining))
	return nil
}

// Release returns a reservation that never reached the upstream, e.g.
// when request construction failed before the network call.
func (b *Budget) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.remaining++
	if b.used > 0 {
		b.used--
	}
	metrics.BudgetRemaining.Set(float64(b.remaining))
}

// Sync re-seeds the counters from the quota the upstream reported.
// Upstream numbers are authoritative; local book-keeping only bridges the
// gap between responses.
func (b *Budget) Sync(used, remaining int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()

	if used >= 0 {
		b.used = used
	}
	if remaining >= 0 {
		b.remaining = remaining
	}
	metrics.BudgetRemaining.Set(float64(b.remaining))
}

// Usage returns the current budget state.
func (b *Budget) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()

	return Usage{
		RequestsUsed:      b.used,
		RequestsRemaining: b.remaining,
		BudgetPeriod:      b.period,
	}
}

// rolloverLocked resets the counters when the period has changed. The
// reset is keyed on the period string, so concurrent callers racing over
// a rollover apply it exactly once.
func (b *Budget) rolloverLocked() {
	current := periodKey(b.clock())
	if current == b.period {
		return
	}
	b.period = current
	b.used = 0
	b.remaining = b.quota
	metrics.BudgetRemaining.Set(float64(b.remaining))
}
