package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"framerelay/internal/config"
	"framerelay/internal/fault"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/repository"
	"framerelay/internal/repository/sqlite"
	"framerelay/internal/route"
	"framerelay/internal/service"
	"framerelay/internal/service/storage"
	"framerelay/internal/service/websocket"
	"framerelay/internal/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	retentionInterval = time.Hour
	shutdownTimeout   = 10 * time.Second
)

// App is the relay server process.
type App struct {
	config           *config.RelayConfig
	logger           *logger.Logger
	db               *sqlite.DB
	retentionService *storage.RetentionService
	hubService       *websocket.HubService
	server           *http.Server
}

// NewApp wires the relay from cfg. Missing secrets are logged, not fatal: the relay
// starts and answers every upload with "Server misconfigured".
func NewApp(cfg *config.RelayConfig, log *logger.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	relayMetrics := metrics.NewRelay(registry)
	reporter := fault.NewReporter(log, metrics.NewFaults(registry))

	if err := cfg.Validate(); err != nil {
		reporter.Report(fault.New(fault.Validation, "startup", err))
	}

	a := &App{config: cfg, logger: log}

	var deliveryRepo repository.DeliveryRepository
	if cfg.DatabasePath != "" {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open delivery log: %w", err)
		}
		a.db = db
		repo := sqlite.NewDeliveryRepository(db)
		deliveryRepo = repo
		if cfg.Retention > 0 {
			a.retentionService = storage.NewRetentionService(repo, cfg.Retention, log)
		}
	}

	a.hubService = websocket.NewHubService(log, relayMetrics)
	manager := service.NewManager(deliveryRepo, a.hubService, relayMetrics, log)
	sink := telegram.NewClient(cfg.TelegramAPIURL, cfg.BotToken, cfg.SinkTimeout)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           route.SetupRoutes(cfg, sink, manager, reporter, log, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Handler returns the relay's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests and closes the delivery log.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.hubService.Run(bgCtx)
	if a.retentionService != nil {
		go a.retentionService.Run(bgCtx, retentionInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.logger.Info("Frame relay listening on %s", a.server.Addr)
	if a.config.DatabasePath != "" {
		a.logger.Info("Delivery log: %s", a.config.DatabasePath)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Relay shutdown failed: %v", err)
	}
	cancel()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close delivery log: %v", err)
		}
	}
	a.logger.Info("Frame relay stopped")
	return runErr
}
