package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTokenService(t *testing.T, clk clock.Clock) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	}, clk)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestNewTokenService_RejectsBadSecrets(t *testing.T) {
	if _, err := NewTokenService(TokenConfig{AccessSecret: "a"}, nil); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
	if _, err := NewTokenService(TokenConfig{AccessSecret: "same", RefreshSecret: "same"}, nil); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestTokenService_AccessExpiryBoundary(t *testing.T) {
	clk := clock.NewMock(t0)
	svc := newTestTokenService(t, clk)

	pair, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"at issue", t0, nil},
		{"one second before expiry", t0.Add(15*time.Minute - time.Second), nil},
		{"exactly at expiry", t0.Add(15 * time.Minute), nil},
		{"one second after expiry", t0.Add(15*time.Minute + time.Second), domain.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.Set(tt.at)
			claims, err := svc.VerifyAccess(pair.AccessToken)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && claims.Subject != "u1" {
				t.Fatalf("unexpected subject %q", claims.Subject)
			}
		})
	}
}

func TestTokenService_ClaimsRoundTrip(t *testing.T) {
	clk := clock.NewMock(t0)
	svc := newTestTokenService(t, clk)

	pair, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if claims.Class != domain.TokenRefresh || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IssuedAt.Equal(t0) || !claims.ExpiresAt.Equal(t0.Add(240*time.Hour)) {
		t.Fatalf("unexpected times: iat=%v exp=%v", claims.IssuedAt, claims.ExpiresAt)
	}

	second, _ := svc.Issue("u1")
	again, _ := svc.VerifyRefresh(second.RefreshToken)
	if again.ID == claims.ID {
		t.Fatal("each refresh token must carry a distinct id")
	}
}

func TestTokenService_ClassSeparation(t *testing.T) {
	svc := newTestTokenService(t, clock.NewMock(t0))
	pair, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
}

func TestTokenService_RejectsForgeries(t *testing.T) {
	svc := newTestTokenService(t, clock.NewMock(t0))
	pair, _ := svc.Issue("u1")
	other, _ := svc.Issue("u2")

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
		Type: domain.TokenAccess,
	}).SignedString([]byte("someone-elses-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
		Type: domain.TokenAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	// Payload of u2's token spliced onto u1's signature.
	a := strings.Split(pair.AccessToken, ".")
	b := strings.Split(other.AccessToken, ".")
	spliced := strings.Join([]string{a[0], b[1], a[2]}, ".")

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"alg none":       none,
		"spliced claims": spliced,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.VerifyAccess(token); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	svc := newTestTokenService(t, clock.NewMock(t0))
	if _, err := svc.Issue(""); err == nil {
		t.Fatal("expected error for empty subject")
	}
}
