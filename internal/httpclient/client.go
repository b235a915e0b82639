// Package httpclient builds the pooled, instrumented HTTP client used for
// calls to the model provider.
package httpclient

import (
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultUserAgent is sent when a request carries none
	DefaultUserAgent = "Merak-Trip-Planner"

	// StatusError labels round trips that produced no response
	StatusError = "error"

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 30 * time.Second
	defaultDialKeepAlive       = 30 * time.Second
)

// Observer is called after every round trip. status is the response code, or
// StatusError when the transport failed.
type Observer func(host, status string, elapsed time.Duration)

// Config holds configuration for creating an HTTP client.
type Config struct {
	// UserAgent is added to requests that do not set one
	UserAgent string

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is zero by default: non-streaming generations can take
	// long before the first byte, and the caller's context bounds the request.
	ResponseHeaderTimeout time.Duration

	// Observer receives per-request outcomes for metrics
	Observer Observer

	// Base overrides the underlying transport, mainly for tests
	Base http.RoundTripper
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:           DefaultUserAgent,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
	}
}

// New creates an *http.Client. A nil cfg uses DefaultConfig; zero fields fall
// back to their defaults. The caller's config is not modified.
func New(cfg *Config) *http.Client {
	c := DefaultConfig()
	if cfg != nil {
		c = withDefaults(*cfg)
	}

	base := c.Base
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          c.MaxIdleConns,
			MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
			IdleConnTimeout:       c.IdleConnTimeout,
			TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
			ResponseHeaderTimeout: c.ResponseHeaderTimeout,
		}
	}

	return &http.Client{
		// No client timeout; deadlines come from the request context
		Transport: &transport{base: base, userAgent: c.UserAgent, observe: c.Observer},
	}
}

func withDefaults(c Config) Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = d.IdleConnTimeout
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	return c
}

type transport struct {
	base      http.RoundTripper
	userAgent string
	observe   Observer
}

// RoundTrip implements http.RoundTripper
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	if t.observe != nil {
		status := StatusError
		if err == nil && resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		t.observe(req.URL.Host, status, time.Since(start))
	}
	return resp, err
}
