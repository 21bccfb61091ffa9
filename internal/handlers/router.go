package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// NewRouter wires every route of the API.
//
//	GET    /health
//	GET    /v1/adventures
//	GET    /v1/adventures/{id}
//	POST   /v1/sessions
//	GET    /v1/sessions/{id}
//	DELETE /v1/sessions/{id}
//	POST   /v1/sessions/{id}/choices
//	POST   /v1/sessions/{id}/items/{item}/use
func NewRouter(store storage.Storage, log *slog.Logger, engineOpts ...engine.Option) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/health", NewHealthHandler(store, log))

	adventures := NewAdventureHandler(store, log)
	sessions := NewSessionHandler(store, log, engineOpts...)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/adventures", func(r chi.Router) {
			r.Get("/", adventures.List)
			r.Get("/{id}", adventures.Get)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessions.Get)
				r.Delete("/", sessions.Delete)
				r.Post("/choices", sessions.Choose)
				r.Post("/items/{item}/use", sessions.UseItem)
			})
		})
	})

	return r
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.WithRequestID(log, middleware.GetReqID(r.Context())).Info("Request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		})
	}
}
