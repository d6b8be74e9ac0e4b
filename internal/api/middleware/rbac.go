package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/eventbooker/event-booker/internal/core/auth"
	"github.com/eventbooker/event-booker/internal/core/domain"
)

// RBAC enforces role-based access control on an identity stored by Auth.
func RBAC(p *auth.Pipeline, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if err := p.Authorize(identity, allowedRoles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OwnerFunc returns the id of the user owning the resource a request targets.
type OwnerFunc func(c echo.Context) (string, error)

// OwnerFromParam treats the path parameter name as the owner id.
func OwnerFromParam(name string) OwnerFunc {
	return func(c echo.Context) (string, error) {
		return c.Param(name), nil
	}
}

// Ownership admits admins and the owner resolved by owner. Errors from owner,
// such as a missing resource, are returned unchanged.
func Ownership(p *auth.Pipeline, owner OwnerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			ownerID, err := owner(c)
			if err != nil {
				return err
			}
			if err := p.AuthorizeOwnership(identity, ownerID); err != nil {
				return err
			}
			return next(c)
		}
	}
}
