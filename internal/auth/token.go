// Package auth implements stateless request authentication: a signed-token
// codec, a credential verifier, and the request-scoped principal that the
// authentication middleware publishes for downstream handlers.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scheme is the fixed prefix carried in the Authorization header in front of
// the token, including the trailing space.
const Scheme = "Bearer "

// ErrInvalidToken covers every decode failure: bad signature, wrong signing
// method, malformed structure, or missing claims. Callers must not surface a
// more specific reason to clients.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the decoded payload of an access token.
type Claims struct {
	UserID    string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the claims are past their expiry at the given time.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Codec issues and decodes HS256-signed access tokens. The secret is set once
// at startup and read concurrently without locking; token verification keeps
// no server-side state so any process instance can authorize any request.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a Codec with the given signing secret and token lifetime.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user with iat = now and exp = now + TTL.
func (c *Codec) Issue(userID string, roles []string) (string, error) {
	now := c.now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(c.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Decode verifies the signature and structure of a raw token (without the
// scheme prefix) and returns its claims. Expiry is not checked here; callers
// decide what an expired-but-authentic token means.
func (c *Codec) Decode(raw string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, ErrInvalidToken
	}
	iat, ok := numericClaim(mc["iat"])
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	exp, ok := numericClaim(mc["exp"])
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		UserID:    sub,
		Roles:     roleClaims(mc["roles"]),
		IssuedAt:  time.Unix(iat, 0).UTC(),
		ExpiresAt: time.Unix(exp, 0).UTC(),
	}, nil
}

// IsExpired reports whether already-decoded claims have expired relative to
// the codec's clock. Signature verification is Decode's job.
func (c *Codec) IsExpired(cl Claims) bool {
	return cl.Expired(c.now().UTC())
}

// StripScheme removes the scheme prefix from an Authorization header value.
// The second return is false when the prefix is absent.
func StripScheme(header string) (string, bool) {
	if !strings.HasPrefix(header, Scheme) {
		return "", false
	}
	return strings.TrimPrefix(header, Scheme), true
}

func numericClaim(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func roleClaims(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(arr))
	for _, r := range arr {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
