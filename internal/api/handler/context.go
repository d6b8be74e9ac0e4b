package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/eventbooker/event-booker/internal/api/middleware"
	"github.com/eventbooker/event-booker/internal/core/domain"
)

// currentIdentity returns the identity stored by the Auth middleware. Its
// absence means the route was mounted without Auth and is reported as an
// authentication failure.
func currentIdentity(c echo.Context) (domain.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return identity, nil
}
