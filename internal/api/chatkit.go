package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	mw "github.com/merak-travel/merak/internal/api/middleware"
	"github.com/merak-travel/merak/internal/chatkit"
	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/observability/metrics"
)

// AnonymousUser is the user id assigned when no identity header is present
const AnonymousUser = "anonymous"

// requestContext extracts the caller identity for the ChatKit server.
func requestContext(c echo.Context) chatkit.RequestContext {
	req := c.Request()
	userID := strings.TrimSpace(req.Header.Get(mw.HeaderUserID))
	if userID == "" {
		userID = strings.TrimSpace(req.Header.Get(mw.HeaderUserIDAlt))
	}
	if userID == "" {
		userID = AnonymousUser
	}

	host := req.RemoteAddr
	if h, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		host = h
	}
	return chatkit.RequestContext{UserID: userID, ClientHost: host}
}

// handleChatKit bridges POST /chatkit to the ChatKit server.
func (s *Server) handleChatKit(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
	}

	rc := requestContext(c)
	result, err := s.chatKit.Process(c.Request().Context(), payload, rc)
	if err != nil {
		return s.chatKitError(c, err)
	}

	switch r := result.(type) {
	case *chatkit.StreamingResult:
		return s.streamChatKit(c, r)
	case *chatkit.JSONResult:
		return c.JSONBlob(http.StatusOK, r.Body)
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "unexpected result"})
	}
}

// streamChatKit writes a streaming result as server-sent events.
func (s *Server) streamChatKit(c echo.Context, result *chatkit.StreamingResult) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	// Stop streaming on client disconnect or server shutdown
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	var httpMetrics *metrics.HTTPMetrics
	if s.metrics != nil {
		httpMetrics = s.metrics.HTTP
		httpMetrics.SSEStreamStarted()
	}
	start := time.Now()

	err := result.Stream(ctx, func(ev chatkit.Event) error {
		frame, err := chatkit.FormatSSE(ev)
		if err != nil {
			return err
		}
		if _, err := c.Response().Write(frame); err != nil {
			return err
		}
		c.Response().Flush()
		if httpMetrics != nil {
			httpMetrics.RecordSSEEvent(ev.Type)
		}
		return nil
	})

	reason := metrics.SSECloseReasonCompleted
	switch {
	case ctx.Err() != nil:
		reason = metrics.SSECloseReasonCanceled
	case err != nil:
		reason = metrics.SSECloseReasonError
	}
	if httpMetrics != nil {
		httpMetrics.SSEStreamClosed(time.Since(start).Seconds(), reason)
	}

	if err != nil {
		// headers are already sent; the error event (if any) was emitted in-stream
		s.log.Warn("chatkit stream ended with error",
			logger.Error(err),
			logger.String("reason", reason),
			logger.String("client_ip", c.RealIP()))
	}
	return nil
}

func (s *Server) chatKitError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.IsValidation(err):
		status = http.StatusBadRequest
	case errors.IsNotFound(err):
		status = http.StatusNotFound
	default:
		s.log.Error("chatkit request failed",
			logger.Error(err),
			logger.String("client_ip", c.RealIP()))
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
