package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit answers with onLimited once the caller's bucket is empty.
// Callers are keyed by their real IP. A nil onLimited writes a bare 429.
func RateLimit(l Limiter, onLimited echo.HandlerFunc) echo.MiddlewareFunc {
	if onLimited == nil {
		onLimited = func(c echo.Context) error { return c.NoContent(http.StatusTooManyRequests) }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l != nil && !l.Allow(c.RealIP()) {
				return onLimited(c)
			}
			return next(c)
		}
	}
}
