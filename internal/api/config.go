// Package api provides the HTTP server for Merak: the landing page, static assets,
// health checks, metrics and the ChatKit bridge.
package api

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
	DefaultMetricsPath     = "/metrics"
)

// Route paths
const (
	PathHome    = "/"
	PathStatic  = "/static"
	PathHealth  = "/healthz"
	PathChatKit = "/chatkit"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host string
	Port int

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // zero disables the deadline so SSE streams can run long
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string

	// ChatKit rate limiting per client IP
	ChatKitRate  float64
	ChatKitBurst int

	MetricsEnabled bool
	MetricsPath    string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:            conf.DefaultHost,
		Port:            conf.DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		ChatKitRate:     5,
		ChatKitBurst:    10,
		MetricsEnabled:  true,
		MetricsPath:     DefaultMetricsPath,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	cfg.Host = settings.Web.Host
	cfg.Port = settings.Web.Port
	cfg.AllowedOrigins = settings.Web.CORSOrigins
	cfg.WriteTimeout = settings.Web.WriteTimeout
	if settings.Web.ReadTimeout > 0 {
		cfg.ReadTimeout = settings.Web.ReadTimeout
	}
	if settings.Web.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.Web.ShutdownTimeout
	}
	if settings.Web.BodyLimit != "" {
		cfg.BodyLimit = settings.Web.BodyLimit
	}

	if settings.ChatKit.RateLimit > 0 {
		cfg.ChatKitRate = settings.ChatKit.RateLimit
	}
	if settings.ChatKit.RateBurst > 0 {
		cfg.ChatKitBurst = settings.ChatKit.RateBurst
	}

	cfg.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}

	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.ChatKitRate <= 0 || c.ChatKitBurst <= 0 {
		return fmt.Errorf("chatkit rate limit and burst must be positive")
	}
	if c.MetricsEnabled && (c.MetricsPath == "" || c.MetricsPath[0] != '/') {
		return fmt.Errorf("metrics path %q must start with /", c.MetricsPath)
	}
	return nil
}

// Address returns the listen address in host:port form.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
