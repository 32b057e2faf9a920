package jwtmiddleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/tokens"
)

// JWT authenticates requests with a bearer token and stores the parsed
// claims under the "user" context key.
func JWT(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningMethod: "HS256",
		SigningKey:    secret,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(tokens.Claims)
		},
	})
}

// CurrentClaims extracts the authenticated claims set by JWT. It returns nil
// on routes that skipped the middleware.
func CurrentClaims(c echo.Context) *tokens.Claims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil
	}
	claims, ok := token.Claims.(*tokens.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RequireRoles gates a route on the caller's role.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}
			for _, role := range roles {
				if claims.UserType == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "access denied, you are not allowed")
		}
	}
}
