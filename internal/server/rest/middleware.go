package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

// authed resolves the X-Token header and passes the principal to next.
func (h *Handler) authed(next authedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(common.TokenHeaderName)
		if token == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		p, err := h.sessions.ResolveToken(r.Context(), token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r, p)
	}
}

// optionalUser returns the caller when a valid token is sent and nil for
// anonymous requests. An unknown or expired token is treated as anonymous.
func (h *Handler) optionalUser(r *http.Request) (*models.User, error) {
	token := r.Header.Get(common.TokenHeaderName)
	if token == "" {
		return nil, nil
	}

	p, err := h.sessions.ResolveToken(r.Context(), token)
	if errors.Is(err, common.ErrorUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.User, nil
}

// requestLogger logs one line per request.
func requestLogger(h *Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			h.logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
