package providers

import (
	"context"
	"math"
	"sync"
	"time"
)

// DefaultRequestsPerSecond applies when a provider config leaves rate_limit
// unset.
const DefaultRequestsPerSecond = 2.0

// RateLimiter paces requests to one provider. It is a token bucket that holds
// up to one second of requests, and it stops granting entirely while the
// provider has asked us to back off.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	perSecond float64
	burst     float64
	tokens    float64
	refilled  time.Time

	// coolUntil is set from a 429's Retry-After.
	coolUntil time.Time

	granted      int64
	waited       time.Duration
	throttled    int64
	lastThrottle time.Time
}

// LimiterStatus is a point-in-time view of a limiter, reported by /status.
type LimiterStatus struct {
	PerSecond     float64       `json:"per_second"`
	Available     int           `json:"available"`
	Burst         int           `json:"burst"`
	Granted       int64         `json:"granted"`
	Waited        time.Duration `json:"waited"`
	Throttled     int64         `json:"throttled"`
	CoolingDown   bool          `json:"cooling_down"`
	LastThrottled time.Time     `json:"last_throttled,omitempty"`
}

// NewRateLimiter creates a limiter allowing perSecond requests per second.
func NewRateLimiter(perSecond float64) *RateLimiter {
	return newRateLimiter(perSecond, time.Now)
}

func newRateLimiter(perSecond float64, now func() time.Time) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	burst := math.Max(1, math.Floor(perSecond))
	return &RateLimiter{
		now:       now,
		perSecond: perSecond,
		burst:     burst,
		tokens:    burst,
		refilled:  now(),
	}
}

// Wait blocks until the request may go out or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay := r.reserve()
		if delay <= 0 {
			return nil
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		r.mu.Lock()
		r.waited += delay
		r.mu.Unlock()
	}
}

// reserve takes a token and returns 0, or returns how long to wait before
// asking again.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Before(r.coolUntil) {
		return r.coolUntil.Sub(now)
	}
	r.refillLocked(now)
	if r.tokens >= 1 {
		r.tokens--
		r.granted++
		return 0
	}
	return r.untilTokenLocked()
}

// TryConsume takes a token if one is free without waiting.
func (r *RateLimiter) TryConsume() bool {
	return r.reserve() == 0
}

// Record429 notes that the provider throttled us. A positive retryAfter
// holds every caller back for that long; afterwards a single request goes
// out before the bucket refills.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.throttled++
	r.lastThrottle = now
	if until := now.Add(retryAfter); retryAfter > 0 && until.After(r.coolUntil) {
		r.coolUntil = until
		r.tokens = 1
		r.refilled = until
	}
}

// Status reports the limiter's current state.
func (r *RateLimiter) Status() LimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.refillLocked(now)
	return LimiterStatus{
		PerSecond:     r.perSecond,
		Available:     int(r.tokens),
		Burst:         int(r.burst),
		Granted:       r.granted,
		Waited:        r.waited,
		Throttled:     r.throttled,
		CoolingDown:   now.Before(r.coolUntil),
		LastThrottled: r.lastThrottle,
	}
}

func (r *RateLimiter) refillLocked(now time.Time) {
	if !now.After(r.refilled) {
		return
	}
	r.tokens = math.Min(r.burst, r.tokens+now.Sub(r.refilled).Seconds()*r.perSecond)
	r.refilled = now
}

func (r *RateLimiter) untilTokenLocked() time.Duration {
	need := 1 - r.tokens
	d := time.Duration(need / r.perSecond * float64(time.Second))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
