package providers

import (
	"context"
	"testing"
	"time"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time          { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestRateLimiter(t *testing.T) {
	t.Run("bucket holds one second of requests", func(t *testing.T) {
		clock := &fakeNow{t: time.Unix(1000, 0)}
		r := newRateLimiter(2, clock.now)
		if !r.TryConsume() || !r.TryConsume() {
			t.Fatal("expected two tokens")
		}
		if r.TryConsume() {
			t.Fatal("expected bucket to be empty")
		}
		clock.advance(500 * time.Millisecond)
		if !r.TryConsume() {
			t.Fatal("expected a token after half a second at 2/s")
		}
		if s := r.Status(); s.Granted != 3 || s.Burst != 2 || s.PerSecond != 2 {
			t.Errorf("Status() = %+v", s)
		}
	})

	t.Run("slow rates still allow one request", func(t *testing.T) {
		clock := &fakeNow{t: time.Unix(1000, 0)}
		r := newRateLimiter(0.5, clock.now)
		if !r.TryConsume() {
			t.Fatal("expected the first request through")
		}
		if r.TryConsume() {
			t.Fatal("expected the second request to wait")
		}
		if d := r.reserve(); d != 2*time.Second {
			t.Errorf("reserve() = %v, want 2s", d)
		}
	})

	t.Run("defaults when unset", func(t *testing.T) {
		if got := NewRateLimiter(0).Status().PerSecond; got != DefaultRequestsPerSecond {
			t.Errorf("PerSecond = %v, want %v", got, DefaultRequestsPerSecond)
		}
	})

	t.Run("wait honours context", func(t *testing.T) {
		r := NewRateLimiter(1)
		r.TryConsume()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := r.Wait(ctx); err == nil {
			t.Fatal("expected context error while bucket is empty")
		}
	})

	t.Run("429 cools down every caller", func(t *testing.T) {
		clock := &fakeNow{t: time.Unix(1000, 0)}
		r := newRateLimiter(60, clock.now)
		r.Record429(3 * time.Second)

		s := r.Status()
		if !s.CoolingDown || s.Throttled != 1 || s.LastThrottled.IsZero() {
			t.Fatalf("Status() after 429 = %+v", s)
		}
		if d := r.reserve(); d != 3*time.Second {
			t.Errorf("reserve() during cooldown = %v, want 3s", d)
		}

		clock.advance(3 * time.Second)
		if !r.TryConsume() {
			t.Fatal("expected a token once the cooldown passed")
		}
		if r.Status().CoolingDown {
			t.Error("still cooling down")
		}
	})

	t.Run("429 without retry-after only counts", func(t *testing.T) {
		r := NewRateLimiter(5)
		r.Record429(0)
		if !r.TryConsume() {
			t.Fatal("expected tokens to remain")
		}
		if r.Status().Throttled != 1 {
			t.Error("throttle not counted")
		}
	})
}

func TestRegistry_Limits(t *testing.T) {
	r := NewRegistryFromConfig(RegistryConfig{
		Providers: map[string]ProviderConfig{
			"openai": {Type: "openai", APIKey: "k", RateLimit: 4, Enabled: true},
			"mock":   {Type: "mock", Enabled: true},
		},
	})
	limits := r.Limits()
	if len(limits) != 1 {
		t.Fatalf("Limits() = %v, want only openai", limits)
	}
	if l := limits["openai"]; l.PerSecond != 4 || l.Available != 4 {
		t.Errorf("openai limits = %+v", l)
	}
}
