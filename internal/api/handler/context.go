package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/knowledgehub/workflow/internal/api/middleware"
)

// actorName returns the name recorded as author or validator. A verified
// token's username replaces whatever the body claims.
func actorName(c echo.Context, asserted string) string {
	if middleware.Verified(c) {
		if username, _ := c.Get(middleware.CtxUsername).(string); username != "" {
			return username
		}
	}
	return strings.TrimSpace(asserted)
}
