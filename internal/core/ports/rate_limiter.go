package ports

import (
	"context"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// RateLimiter counts requests per key inside a fixed window. The
// check-and-increment is atomic per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (domain.RateDecision, error)
}
