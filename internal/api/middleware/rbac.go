package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// RBAC rejects the request unless the role resolved by Caller may perform
// action. Only for routes whose role never travels in the body. It panics
// at route registration when action has no entry in the permission table.
func RBAC(action domain.Action) echo.MiddlewareFunc {
	if _, ok := domain.RequiredRole(action); !ok {
		panic(fmt.Sprintf("rbac: no role gates action %q", action))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := domain.Authorize(ContextRole(c), action); err != nil {
				return err
			}
			return next(c)
		}
	}
}
