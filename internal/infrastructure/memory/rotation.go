package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
)

// RotationGuard is an in-process set of exchanged refresh token ids. Entries
// are pruned lazily once the token they belong to has expired.
type RotationGuard struct {
	mu    sync.Mutex
	used  map[string]time.Time
	clock clock.Clock
}

func NewRotationGuard(clk clock.Clock) *RotationGuard {
	if clk == nil {
		clk = clock.New()
	}
	return &RotationGuard{used: make(map[string]time.Time), clock: clk}
}

// Claim marks the token id as used and returns false if it already was.
func (g *RotationGuard) Claim(_ context.Context, claims domain.TokenClaims) (bool, error) {
	if claims.ID == "" {
		return false, nil
	}
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for id, exp := range g.used {
		if now.After(exp) {
			delete(g.used, id)
		}
	}

	if _, seen := g.used[claims.ID]; seen {
		return false, nil
	}
	g.used[claims.ID] = claims.ExpiresAt
	return true, nil
}
