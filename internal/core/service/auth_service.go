package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

// maxUsernameAttempts bounds the search for a free username when a federated
// identity is created.
const maxUsernameAttempts = 5

// AuthService implements signup, credential exchange and refresh.
type AuthService struct {
	repo     ports.UserRepository
	tokens   ports.TokenService
	guard    ports.RotationGuard // nil keeps refresh fully stateless
	log      zerolog.Logger
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, guard ports.RotationGuard, log zerolog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		guard:    guard,
		log:      log,
		hashCost: bcrypt.DefaultCost,
	}
}

// Signup registers a local identity and issues its first token pair.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Session, error) {
	username := domain.NormalizeUsername(in.Username)
	email := domain.NormalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	switch {
	case !domain.ValidUsername(username):
		return nil, domain.ValidationError("username must be 3-20 characters of letters, digits or underscores")
	case !domain.ValidEmail(email):
		return nil, domain.ValidationError("email must be a valid email")
	case !domain.ValidPassword(in.Password):
		return nil, domain.ValidationError("password must be 8-72 characters with an uppercase letter, a lowercase letter, a digit and one of @$!%%*?&")
	case !domain.ValidFullName(fullName):
		return nil, domain.ValidationError("fullname must be 3-30 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		PasswordHash:   string(hash),
		Role:           domain.RoleUser,
		SolvedProblems: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user signed up")
	return s.issueSession(created)
}

// Exchange trades a credential for a local session. Password and federated
// credentials share the same issuance path.
func (s *AuthService) Exchange(ctx context.Context, cred domain.Credential) (*domain.Session, error) {
	var (
		user *domain.User
		err  error
	)
	switch cred.Method {
	case domain.CredentialPassword:
		user, err = s.authenticatePassword(ctx, cred)
	case domain.CredentialFederated:
		user, err = s.authenticateFederated(ctx, cred)
	default:
		return nil, domain.ValidationError("unsupported credential method %q", cred.Method)
	}
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// Refresh verifies a refresh token and rotates it into a brand-new pair. It
// returns the subject so callers can attribute the event.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	if _, err := s.repo.FindByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.TokenPair{}, claims.Subject, domain.ErrInvalidToken
		}
		return domain.TokenPair{}, claims.Subject, err
	}

	if s.guard != nil {
		fresh, err := s.guard.Claim(ctx, claims)
		if err != nil {
			return domain.TokenPair{}, claims.Subject, fmt.Errorf("claim refresh token: %w", err)
		}
		if !fresh {
			s.log.Warn().Str("user_id", claims.Subject).Str("jti", claims.ID).Msg("refresh token reuse rejected")
			return domain.TokenPair{}, claims.Subject, domain.ErrInvalidToken
		}
	}

	pair, err := s.tokens.Issue(claims.Subject)
	if err != nil {
		return domain.TokenPair{}, claims.Subject, err
	}
	return pair, claims.Subject, nil
}

// Logout acknowledges a logout. Tokens are stateless, so there is nothing to
// revoke server-side.
func (s *AuthService) Logout(_ context.Context, userID string) error {
	s.log.Debug().Str("user_id", userID).Msg("logout acknowledged")
	return nil
}

func (s *AuthService) authenticatePassword(ctx context.Context, cred domain.Credential) (*domain.User, error) {
	username := domain.NormalizeUsername(cred.Username)
	if username == "" || cred.Password == "" {
		return nil, domain.ValidationError("username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.burnCompare(cred.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Federation-only identities cannot log in with a password.
	if !user.HasPassword() {
		s.burnCompare(cred.Password)
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cred.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// authenticateFederated trusts the provider-verified profile and maps it to a
// local identity, creating a federation-only one on first sign-in.
func (s *AuthService) authenticateFederated(ctx context.Context, cred domain.Credential) (*domain.User, error) {
	email := domain.NormalizeEmail(cred.Email)
	if cred.ProviderToken == "" {
		return nil, domain.ValidationError("provider token is required")
	}
	if !domain.ValidEmail(email) {
		return nil, domain.ValidationError("provider profile has no valid email")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	provider := cred.Provider
	if provider == "" {
		provider = domain.ProviderGoogle
	}
	fullName := strings.TrimSpace(cred.FullName)
	if fullName == "" {
		fullName = email[:strings.IndexByte(email, '@')]
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		created, err := s.repo.Create(ctx, &domain.User{
			Username:       federatedUsername(email, attempt),
			Email:          email,
			FullName:       fullName,
			Provider:       provider,
			Role:           domain.RoleUser,
			ProfileImage:   cred.Picture,
			SolvedProblems: []string{},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err == nil {
			s.log.Info().Str("user_id", created.ID).Str("provider", provider).Msg("federated user created")
			return created, nil
		}
		if !errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		// Either a concurrent sign-in created this email first, or the
		// username is taken and another candidate is needed.
		if existing, ferr := s.repo.FindByEmail(ctx, email); ferr == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("federated sign-in for %s: %w", email, domain.ErrUserExists)
}

func (s *AuthService) issueSession(user *domain.User) (*domain.Session, error) {
	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{User: user, Tokens: pair}, nil
}

// burnCompare spends the same bcrypt work as a real comparison so a missing
// user is not distinguishable by response time.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("codexi-timing-equalizer"), s.hashCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

// federatedUsername derives a username candidate from an email local part.
// The first attempt uses the bare local part, later ones add a numeric suffix.
func federatedUsername(email string, attempt int) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if b.Len() >= 15 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	base := b.String()
	if len(base) < domain.UsernameMinLen {
		base = "user_" + base
	}

	if attempt == 0 {
		return base
	}
	return fmt.Sprintf("%s_%04d", base, rand.Intn(10000))
}
