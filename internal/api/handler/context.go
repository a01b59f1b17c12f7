package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/Bhumit267/CodeXi/internal/api/middleware"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// ctxUserID extracts the identity id injected by the Auth middleware. An
// empty id means the route was mounted without the middleware.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.UserIDKey).(string)
	if id == "" {
		return "", domain.ErrMissingToken
	}
	return id, nil
}
