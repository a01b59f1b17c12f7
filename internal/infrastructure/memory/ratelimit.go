// Package memory holds single-process implementations of the credential
// store, rate limiter and refresh rotation guard. State does not survive a
// restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
)

type window struct {
	start time.Time
	count int
}

// RateLimiter is an in-process fixed-window limiter. A single mutex makes
// the check-and-increment atomic per key.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	policy    domain.RateLimitPolicy
	clock     clock.Clock
	lastSweep time.Time
}

func NewRateLimiter(policy domain.RateLimitPolicy, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &RateLimiter{
		windows:   make(map[string]*window),
		policy:    policy.Normalize(),
		clock:     clk,
		lastSweep: clk.Now(),
	}
}

// Allow counts one request for key and reports whether it is admitted.
func (l *RateLimiter) Allow(_ context.Context, key string) (domain.RateDecision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.policy.Window {
		l.windows[key] = &window{start: now, count: 1}
		return domain.RateDecision{Allowed: true, Remaining: l.policy.Max - 1}, nil
	}

	if w.count <= l.policy.Max {
		w.count++
	}
	if w.count <= l.policy.Max {
		return domain.RateDecision{Allowed: true, Remaining: l.policy.Max - w.count}, nil
	}
	return domain.RateDecision{Allowed: false, RetryAfter: w.start.Add(l.policy.Window).Sub(now)}, nil
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// sweep drops elapsed windows at most once per window length. Caller holds mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.policy.Window {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.policy.Window {
			delete(l.windows, k)
		}
	}
	l.lastSweep = now
}
