// Package handlers exposes the wizard as a JSON API for the browser
// front-end.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lehigh-university-libraries/adwizard/internal/wizard"
)

type Handler struct {
	wizard    *wizard.Wizard
	staticDir string
	origins   []string
}

type Option func(*Handler)

// WithStaticDir sets where the front-end files are served from
func WithStaticDir(dir string) Option { return func(h *Handler) { h.staticDir = dir } }

// WithAllowedOrigins enables CORS for a separately served front-end
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

func New(w *wizard.Wizard, opts ...Option) *Handler {
	h := &Handler{wizard: w, staticDir: "static"}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the API, health check and static files
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(h.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthcheck", h.HandleHealthcheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.HandleState)
		r.Post("/auth/login", h.HandleLogin)
		r.Post("/auth/logout", h.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Put("/credential", h.HandleSetCredential)
			r.Delete("/credential", h.HandleClearCredential)

			r.Route("/wizard", func(r chi.Router) {
				r.Post("/goal", h.HandleGoal)
				r.Post("/next", h.HandleNext)
				r.Post("/back", h.HandleBack)
				r.Post("/extract", h.HandleExtract)
				r.Post("/info", h.HandleInfo)
				r.Patch("/style", h.HandleStyle)
				r.Post("/generate", h.HandleGenerate)
				r.Post("/refine", h.HandleRefine)
				r.Post("/restart", h.HandleRestart)
			})

			r.Get("/creatives/{index}/image", h.HandleCreativeImage)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", h.HandleHistory)
				r.Delete("/", h.HandleClearHistory)
				r.Post("/{id}/load", h.HandleLoadHistory)
			})
		})
	})

	r.Get("/*", h.HandleStatic)
	return r
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("OK"))
}
