package ports

import (
	"context"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// UpdateProfileInput carries profile edits; empty strings mean unchanged.
type UpdateProfileInput struct {
	Username string
	Email    string
	FullName string
}

// UserService covers the authenticated profile operations.
type UserService interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	ToggleSolved(ctx context.Context, userID, slug string) ([]string, error)
	Delete(ctx context.Context, userID string) error
}
