package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

type stubLimiter struct {
	keys    []string
	allowFn func(key string) (domain.RateDecision, error)
}

func (s *stubLimiter) Allow(_ context.Context, key string) (domain.RateDecision, error) {
	s.keys = append(s.keys, key)
	return s.allowFn(key)
}

func runRateLimited(t *testing.T, limiter *stubLimiter) (bool, error) {
	t.Helper()
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:40000"
	// Client supplied headers must not change the key.
	req.Header.Set(echo.HeaderXRealIP, "10.9.8.7")
	req.Header.Set(echo.HeaderXForwardedFor, "10.9.8.7")
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	handler := RateLimit(limiter, "login", domain.DefaultRateLimitPolicy, zerolog.Nop())(func(c echo.Context) error {
		called = true
		return nil
	})
	err := handler(c)
	return called, err
}

func TestRateLimit_Allowed(t *testing.T) {
	limiter := &stubLimiter{allowFn: func(string) (domain.RateDecision, error) {
		return domain.RateDecision{Allowed: true, Remaining: 4}, nil
	}}

	called, err := runRateLimited(t, limiter)
	if err != nil || !called {
		t.Fatalf("expected pass-through, got err=%v called=%v", err, called)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "login:203.0.113.7" {
		t.Fatalf("unexpected limiter keys: %v", limiter.keys)
	}
}

func TestRateLimit_Rejected(t *testing.T) {
	limiter := &stubLimiter{allowFn: func(string) (domain.RateDecision, error) {
		return domain.RateDecision{Allowed: false, RetryAfter: 30 * time.Second}, nil
	}}

	called, err := runRateLimited(t, limiter)
	if called {
		t.Fatal("next must not run when rejected")
	}

	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatal("expected error to wrap ErrRateLimited")
	}
	if rl.RetryAfter != 30*time.Second {
		t.Errorf("retry after: got %v", rl.RetryAfter)
	}
	if rl.Message != "Too many requests from this IP, please try again after 2 minutes" {
		t.Errorf("unexpected message %q", rl.Message)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &stubLimiter{allowFn: func(string) (domain.RateDecision, error) {
		return domain.RateDecision{}, domain.ErrUpstream
	}}

	called, err := runRateLimited(t, limiter)
	if err != nil || !called {
		t.Fatalf("expected fail-open pass-through, got err=%v called=%v", err, called)
	}
}

func TestHumanize(t *testing.T) {
	tests := map[time.Duration]string{
		2 * time.Minute:  "2 minutes",
		time.Minute:      "1 minute",
		time.Hour:        "1 hour",
		90 * time.Second: "90 seconds",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%v) = %q, want %q", in, got, want)
		}
	}
}
