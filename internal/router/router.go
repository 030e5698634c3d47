// Package router wires handlers, the authentication gate and the redis
// middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/leduoyang/connect-backend/internal/auth"
	"github.com/leduoyang/connect-backend/internal/config"
	"github.com/leduoyang/connect-backend/internal/handler"
	"github.com/leduoyang/connect-backend/internal/middleware"
)

// APIPrefix is the base path of every resource endpoint.
const APIPrefix = "/api/connect/v1"

// PublicPaths is the gate configuration: everything under the public prefix
// plus the operational endpoints bypasses authentication.
func PublicPaths() middleware.PublicPaths {
	return middleware.PublicPaths{
		Prefixes: []string{APIPrefix + "/public/"},
		Exact:    []string{"/healthz"},
	}
}

// Register installs the gate and all routes. The gate runs for every
// request; the rate limiter runs after it so authenticated traffic is keyed
// by user. rdb may be nil, which disables caching and rate limiting.
func Register(e *echo.Echo, codec *auth.Codec, rdb *redis.Client,
	a *handler.AuthHandler, u *handler.UserHandler, p *handler.PostHandler, cm *handler.CommentHandler) {

	e.GET("/healthz", handler.Health)

	e.Use(middleware.Authenticate(codec, PublicPaths()))
	e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

	api := e.Group(APIPrefix)

	// Guest-reachable endpoints. Reads are cached; the sign-in/up POSTs pass
	// through the cache untouched.
	pub := api.Group("/public")
	pub.Use(middleware.PublicCache(config.LoadCacheConfig(), rdb))
	pub.POST("/user/signup", a.SignUp)
	pub.POST("/user/signin", a.SignIn)
	pub.GET("/user/:userId", u.Get)
	pub.GET("/post/:id", p.Get)
	pub.GET("/posts", p.Query)
	pub.GET("/comments", cm.ListByPost)

	// Authenticated surface. Signin is also reachable here so clients with a
	// live token can re-authenticate without switching URLs.
	api.POST("/user/signin", a.SignIn)
	api.GET("/users/me", u.Me)
	api.PATCH("/user/me", u.Edit)
	api.GET("/users", u.Search)
	api.GET("/user/:userId", u.Get)
	api.DELETE("/user/:userId", u.Delete)
	api.POST("/user/:userId/follow", u.Follow)

	api.POST("/post", p.Create)
	api.GET("/posts", p.Query)
	api.GET("/post/:id", p.Get)
	api.PATCH("/post/:id", p.Edit)
	api.DELETE("/post/:id", p.Delete)
	api.POST("/post/:id/star", p.Star)

	api.POST("/comment", cm.Create)
	api.GET("/comments", cm.ListByPost)
	api.GET("/comment/:id", cm.Get)
	api.PATCH("/comment/:id", cm.Edit)
	api.DELETE("/comment/:id", cm.Delete)
	api.POST("/comment/:id/star", cm.Star)
}
