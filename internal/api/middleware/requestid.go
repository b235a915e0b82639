package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/merak-travel/merak/internal/logger"
)

// NewRequestID tags every request with an X-Request-Id, reusing the caller's
// value when present, and stores it as the trace ID on the request context so
// loggers obtained through WithContext carry it.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	})
}
