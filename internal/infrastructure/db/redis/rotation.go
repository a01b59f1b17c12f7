package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
)

// RotationGuard remembers exchanged refresh tokens until they would have
// expired anyway, so each refresh token is usable once.
// Key format: refresh:used:<jti>
type RotationGuard struct {
	client *redis.Client
	clock  clock.Clock
}

// NewRotationGuard creates a RotationGuard wrapping the given Redis client.
func NewRotationGuard(client *redis.Client, clk clock.Clock) *RotationGuard {
	if clk == nil {
		clk = clock.New()
	}
	return &RotationGuard{client: client, clock: clk}
}

// Claim atomically marks the token id as used. It returns false if the id
// had already been claimed.
func (g *RotationGuard) Claim(ctx context.Context, claims domain.TokenClaims) (bool, error) {
	if claims.ID == "" {
		return false, nil
	}

	ttl := claims.ExpiresAt.Sub(g.clock.Now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := g.client.SetNX(ctx, g.key(claims.ID), claims.Subject, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim refresh token: %w: %w", domain.ErrUpstream, err)
	}
	return ok, nil
}

func (g *RotationGuard) key(id string) string {
	return "refresh:used:" + id
}
