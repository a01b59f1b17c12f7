package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bhumit267/CodeXi/internal/api/metrics"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

// RateLimit admits at most policy.Max requests per client address per window
// for the given scope. Limiter failures let the request through.
func RateLimit(limiter ports.RateLimiter, scope string, policy domain.RateLimitPolicy, log zerolog.Logger) echo.MiddlewareFunc {
	message := fmt.Sprintf("Too many requests from this IP, please try again after %s", humanize(policy.Normalize().Window))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			decision, err := limiter.Allow(c.Request().Context(), scope+":"+ip)
			if err != nil {
				metrics.RateLimitDecisionsTotal.WithLabelValues(scope, "error").Inc()
				log.Warn().Err(err).Str("scope", scope).Str("ip", ip).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			if !decision.Allowed {
				metrics.RateLimitDecisionsTotal.WithLabelValues(scope, "rejected").Inc()
				log.Info().Str("scope", scope).Str("ip", ip).Dur("retry_after", decision.RetryAfter).Msg("rate limited")
				return &domain.RateLimitError{RetryAfter: decision.RetryAfter, Message: message}
			}

			metrics.RateLimitDecisionsTotal.WithLabelValues(scope, "allowed").Inc()
			return next(c)
		}
	}
}

func humanize(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
