// tracker.go - Per-provider daily quota ledger with a safe threshold
//
// A provider is admissible while its counter for the current day is below
// floor(limit * safePercent / 100). Every dispatch attempt, successful or
// not, increments the counter. Admission and increment are separate steps,
// so concurrent requests may overshoot the threshold by a few calls.

package quota

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSafePercent is the share of a daily limit that may be used.
const DefaultSafePercent = 80

// Store persists per-provider daily counters. Implementations must treat a
// new calendar day (in the time passed in) as an empty counter.
type Store interface {
	Count(ctx context.Context, provider string, now time.Time) (int64, error)
	Incr(ctx context.Context, provider string, now time.Time) (int64, error)
}

// UsageStats is the usage snapshot for one provider.
type UsageStats struct {
	Used          int64 `json:"used"`
	Limit         int64 `json:"limit"`
	Remaining     int64 `json:"remaining"`
	SafeRemaining int64 `json:"safe_remaining"`
}

// Tracker evaluates admission against daily limits.
type Tracker struct {
	store       Store
	limits      map[string]int64
	safePercent int64
	now         func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSafePercent overrides the 80% threshold.
func WithSafePercent(pct int) Option {
	return func(t *Tracker) {
		if pct > 0 && pct <= 100 {
			t.safePercent = int64(pct)
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker for the given provider limits.
func NewTracker(store Store, limits map[string]int64, opts ...Option) *Tracker {
	copied := make(map[string]int64, len(limits))
	for name, limit := range limits {
		copied[name] = limit
	}
	t := &Tracker{
		store:       store,
		limits:      copied,
		safePercent: DefaultSafePercent,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SafeLimit returns floor(limit * safePercent / 100) for a provider.
func (t *Tracker) SafeLimit(provider string) int64 {
	return t.safeLimit(t.limits[provider])
}

func (t *Tracker) safeLimit(limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return limit * t.safePercent / 100
}

// CanDispatch reports whether provider is still under its safe threshold.
// Unknown providers and store failures are not admissible.
func (t *Tracker) CanDispatch(ctx context.Context, provider string) bool {
	limit, ok := t.limits[provider]
	if !ok {
		return false
	}

	count, err := t.store.Count(ctx, provider, t.now())
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("quota store read failed, skipping provider")
		return false
	}
	return count < t.safeLimit(limit)
}

// RecordCall consumes one unit of quota and returns the new counter value.
// It returns -1 when the store could not be updated.
func (t *Tracker) RecordCall(ctx context.Context, provider string, success bool, latency time.Duration) int64 {
	count, err := t.store.Incr(ctx, provider, t.now())
	if err != nil {
		log.Error().Err(err).
			Str("provider", provider).
			Bool("success", success).
			Int64("latency_ms", latency.Milliseconds()).
			Msg("quota store increment failed")
		return -1
	}
	return count
}

// Limit returns the configured daily limit.
func (t *Tracker) Limit(provider string) int64 {
	return t.limits[provider]
}

// Providers returns tracked provider names in sorted order.
func (t *Tracker) Providers() []string {
	names := make([]string, 0, len(t.limits))
	for name := range t.limits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usage returns a snapshot for every tracked provider.
func (t *Tracker) Usage(ctx context.Context) map[string]UsageStats {
	now := t.now()
	out := make(map[string]UsageStats, len(t.limits))
	for _, name := range t.Providers() {
		limit := t.limits[name]
		used, err := t.store.Count(ctx, name, now)
		if err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("quota store read failed")
			// Report the provider as exhausted
			used = limit
		}
		out[name] = UsageStats{
			Used:          used,
			Limit:         limit,
			Remaining:     max(limit-used, 0),
			SafeRemaining: max(t.safeLimit(limit)-used, 0),
		}
	}
	return out
}
