package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/merak-travel/merak/frontend"
	"github.com/merak-travel/merak/internal/logger"
)

// serveHome renders the landing page. The page is never cached so a new
// deploy is picked up on the next load.
func (s *Server) serveHome(c echo.Context) error {
	var buf bytes.Buffer
	if err := s.renderer.RenderHome(&buf); err != nil {
		s.log.Error("failed to render landing page",
			logger.Error(err),
			logger.String("path", c.Request().URL.Path))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render page")
	}

	h := c.Response().Header()
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	return c.Blob(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func registerStatic(e *echo.Echo) {
	e.StaticFS(PathStatic, frontend.Static)
}
