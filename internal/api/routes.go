package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.config.Server.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/upload", s.UploadFileHandler)
		r.Get("/preview/*", s.PreviewFileHandler)
		r.Get("/download/{filename}", s.DownloadFileHandler)
		r.Get("/files", s.ListFilesHandler)
		r.Delete("/files/{filename}", s.DeleteFileHandler)

		r.Post("/share-folder", s.ShareFolderHandler)
		r.Get("/shared-accesses", s.ListSharedAccessesHandler)
		r.Delete("/clear-shared-accesses", s.ClearSharedAccessesHandler)
	})

	return r
}
