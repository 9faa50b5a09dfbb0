package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"framerelay/internal/camera"
	"framerelay/internal/capture"
	"framerelay/internal/config"
	"framerelay/internal/fault"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadCapture()

	log, err := logger.New(cfg.LogDirectory, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		return 1
	}
	defer log.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	captureMetrics := metrics.NewCapture(registry)
	reporter := fault.NewReporter(log, metrics.NewFaults(registry))

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(registry), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warning("Metrics listener failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	device, err := camera.Open(cfg.CameraDevice, log)
	if err != nil {
		reporter.Report(fault.New(fault.Acquisition, "open camera", err))
		fmt.Fprintf(os.Stderr, "Camera unavailable: %v\n", err)
		return 1
	}

	transport := capture.NewHTTPTransport(cfg.RelayURL, &http.Client{})
	uploader := capture.NewUploader(transport, cfg.UploadTimeout, reporter, log, captureMetrics)
	session := capture.NewSession(device, camera.NewJPEGEncoder(cfg.JPEGQuality), uploader,
		cfg.Interval, reporter, log, captureMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		log.Error("Failed to start capture session: %v", err)
		device.Close()
		return 1
	}
	log.Info("Capture session %s sending to %s every %v", session.ID, cfg.RelayURL, cfg.Interval)

	select {
	case <-ctx.Done():
	case <-session.Done():
	}

	if err := session.Stop(); err != nil {
		log.Warning("Capture session stop: %v", err)
	}
	uploader.Wait()

	stats := session.Stats()
	log.Info("Capture session %s ended: %+v", session.ID, stats)

	if err := session.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Camera lost: %v\n", err)
		return 1
	}
	return 0
}
