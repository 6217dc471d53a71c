// Package server exposes a shared engine over HTTP so many clients reuse one
// cached token.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/takutakahashi/cogs/pkg/cogs/translation"
	"github.com/takutakahashi/cogs/pkg/engine"
	"github.com/takutakahashi/cogs/pkg/utils"
)

// Server routes HTTP requests to the engine
type Server struct {
	echo         *echo.Echo
	engine       *engine.Engine
	translateURL string
	logger       *slog.Logger
}

// TranslateResponse is the body of a successful GET /translate
type TranslateResponse struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
	From        string `json:"from,omitempty"`
	To          string `json:"to"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// New builds the routes. gatherer backs /metrics and may be nil.
func New(eng *engine.Engine, translateURL string, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:         e,
		engine:       eng,
		translateURL: translateURL,
		logger:       logger,
	}

	e.GET("/health", s.health)
	e.GET("/translate", s.translate)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// GetEcho returns the underlying Echo instance
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.logger.Info("[SERVER] listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	_, cached := s.engine.Credentials().Token()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"token_cached": cached,
		"renewing":     s.engine.Credentials().Renewing(),
	})
}

func (s *Server) translate(c echo.Context) error {
	text := c.QueryParam("text")
	to := c.QueryParam("to")
	if text == "" || to == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text and to are required"})
	}
	contentType, err := translation.ParseContentType(c.QueryParam("contentType"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	req := translation.TranslateRequest{
		Text:        text,
		From:        c.QueryParam("from"),
		To:          to,
		ContentType: contentType,
		Category:    c.QueryParam("category"),
		URL:         s.translateURL,
	}
	out, err := engine.Run(c.Request().Context(), s.engine, req)
	if err != nil {
		status := statusFor(err)
		s.logger.Warn("[SERVER] translate failed", "status", status, "error", err)
		return c.JSON(status, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, TranslateResponse{
		Text:        text,
		Translation: out,
		From:        req.From,
		To:          to,
	})
}

// statusFor maps engine and upstream failures onto a response status
func statusFor(err error) int {
	var httpErr utils.HTTPError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrLockPoisoned):
		return http.StatusInternalServerError
	case errors.Is(err, engine.ErrTokenUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
