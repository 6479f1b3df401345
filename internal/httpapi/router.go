// Package httpapi exposes the render service over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"textoverlay/internal/httpapi/handlers"
	"textoverlay/internal/httpkit"
	"textoverlay/internal/pkg/middleware"
)

type Deps struct {
	Handlers     handlers.Deps
	CORSOrigins  []string
	MaxBodyBytes int64
}

func NewRouter(d Deps) http.Handler {
	h := handlers.New(d.Handlers)
	log := h.Log()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAgeSeconds:  600,
	}))

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RENDER ----
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.With(middleware.BodyLimit(maxBody)).Post("/render", middleware.WrapHandler(log, h.PostRender))

	// ---- HISTORY ----
	r.Get("/renders", middleware.WrapHandler(log, h.ListRenders))
	r.Get("/renders/{renderId}", middleware.WrapHandler(log, h.GetRender))

	// ---- FILES ----
	r.Get("/files/*", middleware.WrapHandler(log, h.ServeFile))

	return r
}
