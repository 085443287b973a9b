package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MaxBodyBytes limits request bodies, uploads included.
const MaxBodyBytes = 200 << 20

// NewRouter wires the API routes. origins lists the allowed CORS origins.
func NewRouter(h *Handler, origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Token"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestSize(MaxBodyBytes))

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	r.Get("/status", h.getStatus)
	r.Get("/stats", h.getStats)

	r.Post("/users", h.postUser)
	r.Get("/users/me", h.authed(h.getMe))

	r.Get("/connect", h.getConnect)
	r.Get("/disconnect", h.authed(h.getDisconnect))

	r.Route("/files", func(r chi.Router) {
		r.Post("/", h.authed(h.postFile))
		r.Get("/", h.authed(h.listFiles))
		r.Get("/{id}", h.authed(h.getFile))
		r.Put("/{id}/publish", h.authed(h.publish(true)))
		r.Put("/{id}/unpublish", h.authed(h.publish(false)))
		r.Get("/{id}/data", h.getFileData)
	})

	return r
}
