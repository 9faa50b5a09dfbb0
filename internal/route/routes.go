package route

import (
	"net/http"

	"framerelay/internal/config"
	"framerelay/internal/fault"
	"framerelay/internal/handler"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/middleware"
	"framerelay/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupRoutes registers the relay endpoint and the operational endpoints around it.
func SetupRoutes(cfg *config.RelayConfig, sink handler.Sink, manager *service.Manager,
	reporter *fault.Reporter, logger *logger.Logger, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)

	// Relay endpoint
	router.Post("/api/upload-frame", handler.UploadFrameHandler(cfg, sink, manager, reporter))

	// Operational endpoints
	router.Get("/api/events", handler.ViewEventsHandler(manager, logger))
	router.Get("/api/deliveries", handler.GetDeliveriesHandler(manager, logger))
	router.Handle("/metrics", metrics.Handler(gatherer))

	// Log endpoints
	router.Get("/logs/{level}", handler.ShowLogsHandler(logger))

	return router
}
