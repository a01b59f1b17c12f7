package ports

import (
	"context"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// SignupInput carries the fields of a local registration.
type SignupInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// AuthService orchestrates the credential flows. Login and federated
// sign-in are both expressed as Exchange with a different credential method.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.Session, error)
	Exchange(ctx context.Context, cred domain.Credential) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, string, error)
	Logout(ctx context.Context, userID string) error
}
