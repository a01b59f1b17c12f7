package ports

import (
	"context"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// TokenIssuer mints token pairs.
type TokenIssuer interface {
	Issue(userID string) (domain.TokenPair, error)
}

// AccessVerifier verifies access tokens. It never performs I/O.
type AccessVerifier interface {
	VerifyAccess(token string) (domain.TokenClaims, error)
}

// TokenService owns the signing and verification contract for both classes.
type TokenService interface {
	TokenIssuer
	AccessVerifier
	VerifyRefresh(token string) (domain.TokenClaims, error)
}

// RotationGuard records refresh tokens that have been exchanged so each one
// can be used at most once. Claim returns false when the token id was
// already claimed.
type RotationGuard interface {
	Claim(ctx context.Context, claims domain.TokenClaims) (bool, error)
}
