package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sipico/vssv/internal/metrics"
	"github.com/sipico/vssv/internal/middleware"
)

// NewRouter creates a Chi router with all vault endpoints.
// The logger parameter is used for debug logging of HTTP requests/responses.
func NewRouter(handler *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)
	r.Use(middleware.HTTPLogging(logger))

	r.Get("/livez", handler.HandleLivez)
	r.Get("/readyz", handler.HandleReadyz)
	r.Get("/versionz", handler.HandleVersionz)

	r.Get("/secret/{"+secretIDParam+"}", handler.HandleGetSecret)
	r.With(middleware.MaxBodySize(handler.MaxSecretSize())).
		Post("/secret/{"+secretIDParam+"}/contents", handler.HandlePostSecretContents)

	r.NotFound(handler.HandleNotFound)
	r.MethodNotAllowed(handler.HandleNotFound)

	return r
}
