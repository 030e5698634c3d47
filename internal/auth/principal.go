package auth

import (
	"github.com/labstack/echo/v4"
)

// principalKey is the echo context key under which the middleware stores the
// authenticated principal. Request-scoped by construction: echo contexts are
// never shared between requests, so concurrent requests cannot observe each
// other's principal.
const principalKey = "auth.principal"

// Principal is the authenticated identity for one request. It is built from
// a validated token by the authentication middleware, lives only for the
// request, and is never persisted.
type Principal struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SetPrincipal attaches the principal to the request context. Called by the
// authentication middleware on success.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

// CurrentPrincipal returns the principal for the request, or false when the
// request came through a public route with no credential.
func CurrentPrincipal(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}
