package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"framerelay/internal/config"
	"framerelay/internal/fault"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/model"
	"framerelay/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

// fakeSink records every photo it is handed.
type fakeSink struct {
	mu       sync.Mutex
	calls    int
	chatID   string
	filename string
	payload  []byte
	err      error
	panicMsg string
}

func (s *fakeSink) SendPhoto(ctx context.Context, chatID, filename string, photo io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.chatID = chatID
	s.filename = filename
	s.payload, _ = io.ReadAll(photo)
	return s.err
}

func (s *fakeSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memoryRepo is an in-memory DeliveryRepository.
type memoryRepo struct {
	mu         sync.Mutex
	deliveries []model.Delivery
}

func (r *memoryRepo) Insert(d *model.Delivery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = int64(len(r.deliveries) + 1)
	r.deliveries = append(r.deliveries, *d)
	return d.ID, nil
}

func (r *memoryRepo) GetRecent(limit int) ([]model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Delivery
	for i := len(r.deliveries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.deliveries[i])
	}
	return out, nil
}

func (r *memoryRepo) CountByOutcome() (map[model.Outcome]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[model.Outcome]int)
	for _, d := range r.deliveries {
		counts[d.Outcome]++
	}
	return counts, nil
}

func (r *memoryRepo) DeleteOlderThan(cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryRepo) Last(t *testing.T) model.Delivery {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deliveries) == 0 {
		t.Fatal("No delivery recorded")
	}
	return r.deliveries[len(r.deliveries)-1]
}

type relayFixture struct {
	cfg     *config.RelayConfig
	sink    *fakeSink
	repo    *memoryRepo
	metrics *metrics.Relay
	manager *service.Manager
	handler http.HandlerFunc
}

func setupRelay(t *testing.T, configured bool) *relayFixture {
	t.Helper()

	cfg := &config.RelayConfig{MaxUploadBytes: 1 << 20, SinkTimeout: time.Second}
	if configured {
		cfg.BotToken = "123:abc"
		cfg.ChatID = "-100200"
	}

	log := logger.NewWriter(io.Discard, false)
	reg := prometheus.NewRegistry()
	m := metrics.NewRelay(reg)
	repo := &memoryRepo{}
	manager := service.NewManager(repo, nil, m, log)
	sink := &fakeSink{}

	return &relayFixture{
		cfg:     cfg,
		sink:    sink,
		repo:    repo,
		metrics: m,
		manager: manager,
		handler: UploadFrameHandler(cfg, sink, manager, fault.NewReporter(log, metrics.NewFaults(reg))),
	}
}

// multipartRequest builds an upload with the given field carrying payload.
func multipartRequest(t *testing.T, field string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "frame.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(payload)
	if err := mw.Close(); err != nil {
		t.Fatalf("Close multipart writer failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload-frame", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
