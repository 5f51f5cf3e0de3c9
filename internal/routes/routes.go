package routes

import (
	"net/http"

	"cartoonify/internal/config"
	"cartoonify/internal/handler"
	"cartoonify/internal/logger"
	"cartoonify/internal/middleware"
	"cartoonify/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the API endpoints and wraps the mux with CORS and
// request logging.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	upgrader := handler.NewUpgrader(cfg)

	mux.HandleFunc("GET /{$}", handler.IndexHandler())

	// Filtr
	mux.HandleFunc("POST /process-image", handler.ProcessImageHandler(manager, cfg, logger))
	mux.HandleFunc("GET /webcam-feed", handler.WebcamFeedHandler(manager, logger))
	mux.HandleFunc("GET /ws/webcam-feed", handler.WebcamSocketHandler(manager, upgrader, logger))
	mux.HandleFunc("POST /process-video", handler.ProcessVideoHandler(manager, cfg, logger))

	// Video jobs
	mux.HandleFunc("GET /videos", handler.ListVideosHandler(manager, logger))
	mux.HandleFunc("GET /videos/{id}", handler.GetVideoHandler(manager, logger))
	mux.HandleFunc("GET /videos/{id}/download", handler.DownloadVideoHandler(manager, logger))
	mux.HandleFunc("DELETE /videos/{id}", handler.DeleteVideoHandler(manager, logger))
	mux.HandleFunc("GET /ws/progress", handler.ProgressSocketHandler(manager, upgrader, logger))

	// Operations
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(cfg))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return middleware.LoggingMiddleware(logger, middleware.CORSMiddleware(cfg.AllowedOrigins, mux))
}
