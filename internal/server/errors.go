package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dshills/codecoach/internal/providers"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/thread"
)

// statusFor maps a pipeline error to a status and client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, review.ErrEmptySource), errors.Is(err, review.ErrEmptyMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, thread.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, review.ErrSuperseded):
		return http.StatusConflict, err.Error()
	case providers.IsAuthError(err):
		return http.StatusBadGateway, "classifier authentication failed: check the provider API key"
	case providers.IsRateLimited(err):
		return http.StatusTooManyRequests, "classifier rate limit reached, retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "review timed out"
	case errors.Is(err, review.ErrMissingTitle):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed", "path", r.URL.Path, "status", status, "error", err)
	respondError(w, status, msg)
}
