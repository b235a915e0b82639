// Package middleware provides HTTP middleware components for the Merak server.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Security configuration constants.
const (
	// HSTSMaxAge is the max-age value for HSTS header (1 year in seconds).
	HSTSMaxAge = 31536000

	// HeaderUserID carries the ChatKit caller identity
	HeaderUserID = "X-User-Id"
	// HeaderUserIDAlt is the legacy spelling some clients send
	HeaderUserIDAlt = "X-UserId"
)

// SecurityConfig holds configuration for security middleware.
type SecurityConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool

	HSTSMaxAge            int
	HSTSExcludeSubdomains bool

	ContentSecurityPolicy string
}

// DefaultSecurityConfig returns a SecurityConfig that only allows same-origin browsers.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins:        nil,
		AllowCredentials:      false,
		HSTSMaxAge:            HSTSMaxAge,
		HSTSExcludeSubdomains: false,
		ContentSecurityPolicy: "default-src 'self'",
	}
}

// NewCORS creates a CORS middleware. With no allowed origins it is a no-op so
// the browser's same-origin policy applies.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper: func(echo.Context) bool {
			return len(config.AllowedOrigins) == 0
		},
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-Requested-With",
			HeaderUserID,
			HeaderUserIDAlt,
		},
		AllowCredentials: config.AllowCredentials,
	})
}

// NewSecureHeaders creates a middleware that sets security-related HTTP headers.
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            config.HSTSMaxAge,
		HSTSExcludeSubdomains: config.HSTSExcludeSubdomains,
		ContentSecurityPolicy: config.ContentSecurityPolicy,
	})
}

// NewBodyLimit creates a middleware that limits the request body size.
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
