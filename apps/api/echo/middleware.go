package echoapi

import (
	"github.com/labstack/echo/v4"
)

// rolesMiddleware lets through users holding one of the roles.
func rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextUser(ctx).HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
