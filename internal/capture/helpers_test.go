package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"framerelay/internal/fault"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// ========================================
// Fakes
// ========================================

type fakeCanvas struct {
	size    image.Point
	resizes int
	closed  bool
}

func (c *fakeCanvas) Size() image.Point { return c.size }

func (c *fakeCanvas) Resize(size image.Point) {
	c.size = size
	c.resizes++
}

func (c *fakeCanvas) Close() error {
	c.closed = true
	return nil
}

type fakeSource struct {
	mu     sync.Mutex
	ready  bool
	size   image.Point
	err    error
	draws  int
	closed int
	canvas *fakeCanvas
}

func newReadySource(w, h int) *fakeSource {
	return &fakeSource{ready: true, size: image.Pt(w, h)}
}

func (s *fakeSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSource) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return image.Point{}
	}
	return s.size
}

func (s *fakeSource) NewCanvas() Canvas {
	s.canvas = &fakeCanvas{}
	return s.canvas
}

func (s *fakeSource) Draw(dst Canvas) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	return nil
}

func (s *fakeSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSource) set(ready bool, size image.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
	s.size = size
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeEncoder struct {
	calls atomic.Int64
}

func (e *fakeEncoder) Encode(src Canvas) ([]byte, error) {
	if src.Size().X == 0 || src.Size().Y == 0 {
		return nil, errors.New("zero-size canvas")
	}
	e.calls.Add(1)
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

// blockingTransport holds every Send until release is closed and tracks concurrency.
type blockingTransport struct {
	release  chan struct{}
	started  chan Frame
	current  atomic.Int64
	peak     atomic.Int64
	sends    atomic.Int64
	failWith error
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{
		release: make(chan struct{}),
		started: make(chan Frame, 64),
	}
}

func (t *blockingTransport) Send(ctx context.Context, frame Frame) error {
	n := t.current.Add(1)
	defer t.current.Add(-1)
	for {
		peak := t.peak.Load()
		if n <= peak || t.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	t.sends.Add(1)
	t.started <- frame

	select {
	case <-t.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return t.failWith
}

// instantTransport completes every Send immediately.
type instantTransport struct {
	sends    atomic.Int64
	failWith error
	panics   bool
}

func (t *instantTransport) Send(ctx context.Context, frame Frame) error {
	t.sends.Add(1)
	if t.panics {
		panic("transport exploded")
	}
	return t.failWith
}

// ========================================
// Setup Helpers
// ========================================

type testDeps struct {
	reporter *fault.Reporter
	logger   *logger.Logger
	metrics  *metrics.Capture
}

func setupDeps(t *testing.T) testDeps {
	t.Helper()
	log := logger.NewWriter(io.Discard, true)
	reg := prometheus.NewRegistry()
	return testDeps{
		reporter: fault.NewReporter(log, metrics.NewFaults(reg)),
		logger:   log,
		metrics:  metrics.NewCapture(reg),
	}
}

func setupUploader(t *testing.T, transport Transport) *Uploader {
	t.Helper()
	d := setupDeps(t)
	return NewUploader(transport, 5*time.Second, d.reporter, d.logger, d.metrics)
}

// setupSession starts a session whose timer never fires during the test, so ticks are driven manually.
func setupSession(t *testing.T, source Source, encoder Encoder, transport Transport) (*Session, *Uploader) {
	t.Helper()
	d := setupDeps(t)
	uploader := NewUploader(transport, 5*time.Second, d.reporter, d.logger, d.metrics)
	session := NewSession(source, encoder, uploader, time.Hour, d.reporter, d.logger, d.metrics)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Stop()
		uploader.Wait()
	})
	return session, uploader
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting: %s", msg)
}
