// Package api exposes the file, user and status services over HTTP.
package api

import (
	"net/http"

	"github.com/PaulBabatuyi/files-manager/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handler struct {
	files  FileService
	users  UserService
	status StatusService
	logger *zap.Logger
}

func NewHandler(files FileService, users UserService, status StatusService, logger *zap.Logger) *Handler {
	return &Handler{
		files:  files,
		users:  users,
		status: status,
		logger: logger.Named("api"),
	}
}

type RouterOptions struct {
	MaxBodyBytes int64
	Resolver     middleware.IdentityResolver
}

// NewRouter mounts every route behind the shared middleware stack.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics())
	if opts.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(opts.MaxBodyBytes))
	}
	r.Use(middleware.Authenticate(opts.Resolver, h.logger))

	r.Get("/status", h.getStatus)
	r.Get("/stats", h.getStats)

	r.Post("/users", h.postUser)
	r.Get("/users/me", h.getMe)
	r.Get("/connect", h.getConnect)
	r.Get("/disconnect", h.getDisconnect)

	r.Route("/files", func(r chi.Router) {
		r.Post("/", h.postUpload)
		r.Get("/", h.getIndex)
		r.Get("/{id}", h.getShow)
		r.Put("/{id}/publish", h.putPublish)
		r.Put("/{id}/unpublish", h.putUnpublish)
		r.Get("/{id}/data", h.getFile)
	})

	return middleware.Chain(r, otelhttp.NewMiddleware("files-manager"))
}
