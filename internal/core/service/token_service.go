package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 10 * 24 * time.Hour
)

// TokenConfig holds the secrets and lifetimes of both token classes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Type domain.TokenClass `json:"typ"`
}

type signer struct {
	class  domain.TokenClass
	secret []byte
	ttl    time.Duration
}

// TokenService mints and verifies HS256 access and refresh tokens. Each class
// has its own secret and carries a typ claim, so a token of one class never
// verifies as the other.
type TokenService struct {
	access  signer
	refresh signer
	parser  *jwt.Parser
	clock   clock.Clock
}

func NewTokenService(cfg TokenConfig, clk clock.Clock) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token service: both secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token service: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if clk == nil {
		clk = clock.New()
	}

	return &TokenService{
		access:  signer{class: domain.TokenAccess, secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		refresh: signer{class: domain.TokenRefresh, secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		// Expiry is checked against the injected clock in verify, not by the parser.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		clock: clk,
	}, nil
}

// Issue mints a new access/refresh pair for userID.
func (s *TokenService) Issue(userID string) (domain.TokenPair, error) {
	if userID == "" {
		return domain.TokenPair{}, errors.New("issue token: empty subject")
	}
	now := s.clock.Now().UTC().Truncate(time.Second)

	access, err := s.sign(s.access, userID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(s.refresh, userID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess returns the claims of a valid access token.
func (s *TokenService) VerifyAccess(token string) (domain.TokenClaims, error) {
	return s.verify(s.access, token)
}

// VerifyRefresh returns the claims of a valid refresh token.
func (s *TokenService) VerifyRefresh(token string) (domain.TokenClaims, error) {
	return s.verify(s.refresh, token)
}

func (s *TokenService) sign(sg signer, userID string, now time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sg.ttl).Truncate(time.Second)),
		},
		Type: sg.class,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sg.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", sg.class, err)
	}
	return signed, nil
}

func (s *TokenService) verify(sg signer, token string) (domain.TokenClaims, error) {
	if token == "" {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}

	var claims tokenClaims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return sg.secret, nil
	})
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Type != sg.class || claims.Subject == "" || claims.ExpiresAt == nil {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}

	// A token is valid up to and including its expiry instant.
	if s.clock.Now().After(claims.ExpiresAt.Time) {
		return domain.TokenClaims{}, domain.ErrTokenExpired
	}

	out := domain.TokenClaims{
		Subject:   claims.Subject,
		ID:        claims.ID,
		Class:     claims.Type,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
