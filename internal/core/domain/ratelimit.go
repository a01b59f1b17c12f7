package domain

import "time"

// RateDecision is the outcome of a single rate-limit check.
type RateDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitPolicy configures a fixed-window limiter: at most Max requests per
// key are admitted in each Window that starts with the key's first request.
type RateLimitPolicy struct {
	Window time.Duration
	Max    int
}

// DefaultRateLimitPolicy guards login and password updates.
var DefaultRateLimitPolicy = RateLimitPolicy{Window: 2 * time.Minute, Max: 5}

// Normalize fills zero fields from DefaultRateLimitPolicy.
func (p RateLimitPolicy) Normalize() RateLimitPolicy {
	if p.Window <= 0 {
		p.Window = DefaultRateLimitPolicy.Window
	}
	if p.Max <= 0 {
		p.Max = DefaultRateLimitPolicy.Max
	}
	return p
}
