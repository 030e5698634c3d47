package middleware // package middleware contains reusable HTTP middleware for the API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leduoyang/connect-backend/internal/auth"
)

// PublicPaths configures which requests bypass authentication entirely:
// any path under one of the Prefixes, or an exact match in Exact.
type PublicPaths struct {
	Prefixes []string
	Exact    []string
}

// Allows reports whether the path is public.
func (p PublicPaths) Allows(path string) bool {
	for _, pre := range p.Prefixes {
		if strings.HasPrefix(path, pre) {
			return true
		}
	}
	for _, e := range p.Exact {
		if path == e {
			return true
		}
	}
	return false
}

// Authenticate returns the gate every request passes through. Public paths
// proceed with no principal attached. Every other request must carry
// "Authorization: Bearer <token>"; the token is decoded and checked for
// expiry, and the resulting principal is stored on the request context.
//
// All failure modes — missing header, wrong scheme, bad signature, malformed
// claims, expired token — produce the same 401 body. Clients learn nothing
// about which check failed, and no handler runs after a rejection.
func Authenticate(codec *auth.Codec, public PublicPaths) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if public.Allows(c.Request().URL.Path) {
				return next(c)
			}

			raw, ok := auth.StripScheme(c.Request().Header.Get("Authorization"))
			if !ok {
				return unauthorized(c)
			}
			claims, err := codec.Decode(raw)
			if err != nil {
				return unauthorized(c)
			}
			if codec.IsExpired(claims) {
				return unauthorized(c)
			}

			auth.SetPrincipal(c, auth.Principal{UserID: claims.UserID, Roles: claims.Roles})
			return next(c)
		}
	}
}

// unauthorized is the single rejection shape the gate ever produces.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
