package handler // HTTP handlers of the account service

import (
	"net/http"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/labstack/echo/v4"
)

// Health is a liveness probe for load balancers and monitoring.  It
// returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// KeySetSource publishes the token verification keys.
type KeySetSource interface {
	JWKS() jose.JSONWebKeySet
}

// JWKS serves the access token public key set so that other services can
// verify tokens without the private key.
func JWKS(src KeySetSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "public, max-age=300")
		return c.JSON(http.StatusOK, src.JWKS())
	}
}
