package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/talk-engine/internal/metrics"
	"github.com/jwebster45206/talk-engine/internal/session"
	"github.com/jwebster45206/talk-engine/pkg/storage"
)

// RouterDeps are the services the HTTP API is built on.
type RouterDeps struct {
	Manager       *session.Manager
	Storage       storage.Storage
	Library       ScriptLibrary
	Transcript    TranscriptReader
	Redis         *redis.Client // pub/sub for the SSE stream; nil disables it
	DefaultAvatar string
	Logger        *slog.Logger
}

// NewRouter wires every endpoint.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(RequestLogger(d.Logger))

	r.Handle("/health", NewHealthHandler(d.Storage, d.Manager, d.Logger))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/games", NewGameStateHandler(d.Storage, d.DefaultAvatar, d.Logger).Routes)
		r.Route("/npcs", NewNPCHandler(d.Library, d.Logger).Routes)
		r.Route("/sessions", func(r chi.Router) {
			// Long-lived streams sit outside the request timeout.
			r.Get("/{id}/ws", NewWebSocketHandler(d.Manager, d.Logger).ServeHTTP)
			if d.Redis != nil {
				r.Get("/{id}/stream", NewEventsHandler(d.Redis, d.Logger).ServeHTTP)
			}
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				NewSessionHandler(d.Manager, d.Storage, d.Transcript, d.Logger).Routes(r)
			})
		})
	})
	return r
}
