package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

type userService struct {
	repo     ports.UserRepository
	log      zerolog.Logger
	hashCost int
}

// NewUserService returns a UserService implementation.
func NewUserService(repo ports.UserRepository, log zerolog.Logger) ports.UserService {
	return &userService{repo: repo, log: log, hashCost: bcrypt.DefaultCost}
}

func (s *userService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	var patch domain.UserPatch

	if in.Username != "" {
		username := domain.NormalizeUsername(in.Username)
		if !domain.ValidUsername(username) {
			return nil, domain.ValidationError("username must be 3-20 characters of letters, digits or underscores")
		}
		patch.Username = &username
	}
	if in.Email != "" {
		email := domain.NormalizeEmail(in.Email)
		if !domain.ValidEmail(email) {
			return nil, domain.ValidationError("email must be a valid email")
		}
		patch.Email = &email
	}
	if in.FullName != "" {
		fullName := strings.TrimSpace(in.FullName)
		if !domain.ValidFullName(fullName) {
			return nil, domain.ValidationError("fullname must be 3-30 characters")
		}
		patch.FullName = &fullName
	}

	if patch.Username == nil && patch.Email == nil && patch.FullName == nil {
		return nil, domain.ValidationError("nothing to update")
	}

	return s.repo.Update(ctx, userID, patch)
}

// UpdatePassword replaces the local password after checking the current one.
// Federation-only identities have no local password to change.
func (s *userService) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return domain.ValidationError("old and new password are required")
	}
	if !domain.ValidPassword(newPassword) {
		return domain.ValidationError("password must be 8-72 characters with an uppercase letter, a lowercase letter, a digit and one of @$!%%*?&")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return domain.ValidationError("password is managed by the %s sign-in provider", user.Provider)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	if oldPassword == newPassword {
		return domain.ValidationError("new password must differ from the current one")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Time("at", time.Now().UTC()).Msg("password updated")
	return nil
}

func (s *userService) ToggleSolved(ctx context.Context, userID, slug string) ([]string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ValidationError("slug is required")
	}
	return s.repo.ToggleSolved(ctx, userID, slug)
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("user deleted")
	return nil
}
