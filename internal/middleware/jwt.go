package middleware // reusable HTTP middleware for the account API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/utils"
)

// MsgUnauthorized is returned for every authentication failure.
const MsgUnauthorized = "Unauthorized access"

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (utils.Claims, bool)
}

// JWTAuth returns an Echo middleware that validates an RS256 Bearer access
// token and stores the account id and role claims in the request context
// under KeyUserID and KeyRole.  Missing, malformed, expired or foreign
// tokens all produce the same 401.
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgUnauthorized)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, ok := v.Verify(raw)
			if !ok || claims.User == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgUnauthorized)
			}
			c.Set(KeyUserID, claims.User)
			c.Set(KeyRole, claims.Role)
			return next(c)
		}
	}
}
