package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Bhumit267/CodeXi/internal/api/metrics"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

// UserIDKey is the echo context key holding the authenticated identity id.
const UserIDKey = "user_id"

// Auth verifies the bearer access token and injects the identity id into the
// context. It performs no store lookups.
func Auth(verifier ports.AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return domain.ErrMissingToken
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, domain.ErrTokenExpired) {
					reason = "expired"
				}
				metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
				return err
			}

			c.Set(UserIDKey, claims.Subject)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
