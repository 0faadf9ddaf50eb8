package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// Context keys set by Caller.
const (
	CtxUsername = "username"
	CtxRole     = "role"
	CtxVerified = "verified"
)

// HeaderUserRole is the role assertion header used in trust mode.
const HeaderUserRole = "X-User-Role"

// Caller resolves who is calling and injects it into the echo context.
//
// With a non-empty jwtSecret, identity comes only from a verified HS256
// bearer token and CtxVerified is true. Requests without a token pass
// through anonymous; a malformed or invalid token is rejected with 401.
//
// With an empty jwtSecret the service runs in trust mode: the role is taken
// from the X-User-Role header here, or from the request body by handlers.
func Caller(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if jwtSecret == "" {
				c.Set(CtxVerified, false)
				if role := strings.TrimSpace(c.Request().Header.Get(HeaderUserRole)); role != "" {
					c.Set(CtxRole, domain.Role(role))
				}
				return next(c)
			}

			c.Set(CtxVerified, true)
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			username, _ := claims["username"].(string)
			role, _ := claims["role"].(string)
			if username == "" || !domain.Role(role).Valid() {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing caller identity")
			}

			c.Set(CtxUsername, username)
			c.Set(CtxRole, domain.Role(role))
			return next(c)
		}
	}
}

// Verified reports whether the caller identity came from a verified token.
func Verified(c echo.Context) bool {
	v, _ := c.Get(CtxVerified).(bool)
	return v
}

// ContextRole returns the role resolved by Caller, if any.
func ContextRole(c echo.Context) domain.Role {
	role, _ := c.Get(CtxRole).(domain.Role)
	return role
}

// ResolveRole picks the effective caller role. A verified token always
// wins; in trust mode the role asserted in the body is used, falling back
// to the header.
func ResolveRole(c echo.Context, asserted string) domain.Role {
	if Verified(c) {
		return ContextRole(c)
	}
	if asserted = strings.TrimSpace(asserted); asserted != "" {
		return domain.Role(asserted)
	}
	return ContextRole(c)
}
