package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/reftree/internal/builder"
	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/index"
	"github.com/starford/reftree/internal/metrics"
)

// Config wires the API to the index and the content tree it describes.
type Config struct {
	Index       index.Index
	ContentRoot string
	// TreeOptions are applied to the tree every document request loads into.
	TreeOptions []doctree.Option
	// Build configures POST /build; an empty BuildDir disables it.
	Build builder.Options
	// Metrics, if non-nil, instruments every route and is served at GET /metrics.
	Metrics *metrics.Metrics
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events      http.Handler
	AuthEnabled bool
	Token       string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg Config) chi.Router {
	h := NewHandler(cfg)

	r := chi.NewRouter()
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

		// Documents.
		r.Get("/documents", h.ListDocuments)
		r.Get("/documents/*", h.GetDocument)

		// Reference graph.
		r.Get("/backlinks/*", h.Backlinks)
		r.Get("/refs/*", h.Refs)

		r.Get("/assets", h.Assets)
		r.Get("/search", h.Search)

		r.Post("/build", h.Build)

		// SSE endpoint (protected by same auth middleware).
		if cfg.Events != nil {
			r.Get("/events", cfg.Events.ServeHTTP)
		}
	})

	return r
}
