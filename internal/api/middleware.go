package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/listenupapp/lending-server/internal/logger"
)

// requestLogger attaches a request-scoped logger to the context and logs each request on completion.
// Server errors are logged at error level so unexpected failures are never silent.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		reqLogger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ctx := logger.NewContext(r.Context(), reqLogger)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			reqLogger.Info("request rejected", attrs...)
		default:
			reqLogger.Debug("request", attrs...)
		}
	})
}
