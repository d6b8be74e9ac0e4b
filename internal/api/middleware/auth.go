package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/eventbooker/event-booker/internal/core/auth"
	"github.com/eventbooker/event-booker/internal/core/domain"
)

const identityKey = "identity"

// Auth authenticates the request through the access pipeline and stores the
// resolved identity in the echo context. When roles are given the identity
// must hold one of them.
func Auth(p *auth.Pipeline, cookieName string, roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := p.Authenticate(c.Request().Context(), carrier(c, cookieName), roles...)
			if err != nil {
				return err
			}
			SetIdentity(c, identity)
			return next(c)
		}
	}
}

// OptionalAuth stores the identity when the request carries valid
// credentials and otherwise continues anonymously.
func OptionalAuth(p *auth.Pipeline, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if identity, ok := p.Optional(c.Request().Context(), carrier(c, cookieName)); ok {
				SetIdentity(c, identity)
			}
			return next(c)
		}
	}
}

// SetIdentity attaches identity to c.
func SetIdentity(c echo.Context, identity domain.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the identity stored by Auth or OptionalAuth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(identityKey).(domain.Identity)
	return identity, ok
}

func carrier(c echo.Context, cookieName string) auth.Carrier {
	cr := auth.Carrier{Header: c.Request().Header.Get(echo.HeaderAuthorization)}
	if cookieName != "" {
		if ck, err := c.Cookie(cookieName); err == nil {
			cr.Cookie = ck.Value
		}
	}
	return cr
}
