package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig bundles the handlers and options the router needs.
type RouterConfig struct {
	Upload  *UploadHandler
	Media   *MediaHandler
	Catalog *CatalogHandler
	Blog    *BlogHandler

	DB Pinger

	MetricsEnabled bool
	MetricsPath    string

	Logger zerolog.Logger
}

// NewRouter builds the chi router with all routes mounted.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", healthHandler(cfg.DB))

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Get("/media/*", cfg.Media.Serve)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/uploads", cfg.Upload.Upload)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.Catalog.ListProducts)
			r.Post("/", cfg.Catalog.CreateProduct)
			r.Get("/{id}", cfg.Catalog.GetProduct)
			r.Put("/{id}", cfg.Catalog.UpdateProduct)
			r.Delete("/{id}", cfg.Catalog.DeleteProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", cfg.Catalog.ListCategories)
			r.Post("/", cfg.Catalog.CreateCategory)
			r.Get("/{id}", cfg.Catalog.GetCategory)
			r.Put("/{id}", cfg.Catalog.UpdateCategory)
			r.Delete("/{id}", cfg.Catalog.DeleteCategory)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", cfg.Blog.ListPosts)
			r.Post("/", cfg.Blog.CreatePost)
			r.Get("/{id}", cfg.Blog.GetPost)
			r.Put("/{id}", cfg.Blog.UpdatePost)
			r.Delete("/{id}", cfg.Blog.DeletePost)
		})

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", cfg.Blog.ListTopics)
			r.Post("/", cfg.Blog.CreateTopic)
			r.Get("/{id}", cfg.Blog.GetTopic)
			r.Put("/{id}", cfg.Blog.UpdateTopic)
			r.Delete("/{id}", cfg.Blog.DeleteTopic)
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// requestLogger logs one line per request with zerolog.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
