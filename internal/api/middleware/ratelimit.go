package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client limiter
type RateLimitConfig struct {
	Rate      float64 // requests per second
	Burst     int
	ExpiresIn time.Duration
	// OnDeny is called with the request path whenever a request is rejected
	OnDeny func(path string)
}

// NewRateLimiter limits requests per client IP using an in-memory token bucket.
func NewRateLimiter(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = 3 * time.Minute
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.Rate),
				Burst:     cfg.Burst,
				ExpiresIn: cfg.ExpiresIn,
			},
		),
		IdentifierExtractor: middleware.DefaultRateLimiterConfig.IdentifierExtractor,
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "Unable to identify client for rate limiting",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if cfg.OnDeny != nil {
				cfg.OnDeny(c.Path())
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests, please wait before trying again",
			})
		},
	})
}
