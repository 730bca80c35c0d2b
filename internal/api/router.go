package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/registry"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	cfg config.ServerConfig,
	reg *registry.Registry,
	bus *event.Bus,
	runner Runner,
	logger *logging.Logger,
) *chi.Mux {
	if logger == nil {
		logger = logging.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(RequestID)
	r.Use(Logger(logger.WithComponent("http")))
	r.Use(Recovery(logger))

	h := NewSessionHandler(reg, bus, runner, cfg.SSEPingInterval(), logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/generate", h.Generate)
		r.Get("/result/{id}", h.Result)
		r.Get("/sessions", h.List)
		r.Delete("/sessions/{id}", h.Delete)
		r.Get("/events/{id}", h.Events)
	})

	return r
}
