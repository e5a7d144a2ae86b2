package middleware

import (
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"
)

// Container makes the dependency container with the given id active on every
// request context so handlers resolve their dependencies from it.
func Container(id string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), id)
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
