package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/observability/metrics"
)

// NewMetrics records request counts and latency per matched route.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				// the error handler has not written the response yet
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if status < 400 {
					status = 500
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RecordHTTPRequest(c.Request().Method, path, status, time.Since(start).Seconds())
			return err
		}
	}
}
