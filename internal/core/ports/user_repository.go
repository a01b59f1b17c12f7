package ports

import (
	"context"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// UserRepository is the credential store. Username and email uniqueness is
// enforced by the store itself: Create and Update return domain.ErrUserExists
// when either collides, including under concurrent writers.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	// ToggleSolved adds slug to the solved set if absent, removes it otherwise,
	// and returns the resulting set.
	ToggleSolved(ctx context.Context, id, slug string) ([]string, error)
	Delete(ctx context.Context, id string) error
}
