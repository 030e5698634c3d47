package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/leduoyang/connect-backend/internal/config"
)

// cachedResponse is the stored shape of a cacheable reply. Body is
// base64-encoded by encoding/json.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter tees the response body so a successful reply can be stored
// after it has been sent to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.buf.Len()+len(b) <= cw.limit {
			cw.buf.Write(b)
		} else {
			cw.over = true
			cw.buf.Reset()
		}
	}
	return cw.ResponseWriter.Write(b)
}

// PublicCache caches 200 responses to public GET endpoints in redis. The
// browse endpoints are read-heavy and tolerate slightly stale counters, so a
// short TTL takes most guest traffic off MySQL. With no redis client the
// middleware is a pass-through.
func PublicCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if r.Method != http.MethodGet {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, r.URL.Path, r.URL.RawQuery)

			if bs, err := rdb.Get(r.Context(), key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(bs, &cached) == nil && cached.Status != 0 {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && !cw.over && cw.buf.Len() > 0 {
				payload, err := json.Marshal(cachedResponse{
					Status:      cw.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        cw.buf.Bytes(),
				})
				if err == nil {
					// Detached context: the client already has its reply.
					_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
				}
			}
			return nil
		}
	}
}

func cacheKey(prefix, path, query string) string {
	sum := sha1.Sum([]byte(path + "?" + query))
	return fmt.Sprintf("%s:%x", prefix, sum)
}
