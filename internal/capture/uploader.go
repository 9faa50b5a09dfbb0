package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"framerelay/internal/fault"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"
)

// Attempt is the in-flight state of one transfer.
type Attempt struct {
	ID    uint64
	Frame Frame
	done  atomic.Bool
}

// Done reports whether the transfer has finished, successfully or not.
func (a *Attempt) Done() bool {
	return a.done.Load()
}

// Uploader forwards at most one frame at a time and discards frames offered while busy.
type Uploader struct {
	transport Transport
	timeout   time.Duration
	reporter  *fault.Reporter
	logger    *logger.Logger
	metrics   *metrics.Capture

	inFlight  atomic.Bool
	nextID    atomic.Uint64
	submitted atomic.Uint64
	dropped   atomic.Uint64
	wg        sync.WaitGroup
}

// NewUploader creates an Uploader. Each transfer gets its own timeout, detached from any session context.
func NewUploader(transport Transport, timeout time.Duration, reporter *fault.Reporter, logger *logger.Logger, m *metrics.Capture) *Uploader {
	return &Uploader{
		transport: transport,
		timeout:   timeout,
		reporter:  reporter,
		logger:    logger,
		metrics:   m,
	}
}

// Submit starts a transfer of frame and returns true, or drops frame and returns false
// when a transfer is already in flight. It never waits for the transfer.
func (u *Uploader) Submit(frame Frame) bool {
	if !u.inFlight.CompareAndSwap(false, true) {
		u.dropped.Add(1)
		u.metrics.DroppedTotal.Inc()
		u.logger.Debug("Upload in flight, dropping frame captured at %s", frame.CapturedAt.Format(time.RFC3339Nano))
		return false
	}

	attempt := &Attempt{ID: u.nextID.Add(1), Frame: frame}
	u.submitted.Add(1)
	u.metrics.SubmittedTotal.Inc()
	u.metrics.InFlight.Set(1)

	u.wg.Add(1)
	go u.run(attempt)
	return true
}

// InFlight reports whether a transfer is currently running.
func (u *Uploader) InFlight() bool {
	return u.inFlight.Load()
}

// Wait blocks until the running transfer, if any, has finished.
// Call it only once the feeding session has stopped, so no Submit races the wait.
func (u *Uploader) Wait() {
	u.wg.Wait()
}

func (u *Uploader) run(a *Attempt) {
	defer u.wg.Done()
	defer func() {
		a.done.Store(true)
		u.metrics.InFlight.Set(0)
		u.inFlight.Store(false)
	}()
	defer func() {
		if r := recover(); r != nil {
			u.reporter.Report(fault.New(fault.Transfer, fmt.Sprintf("upload #%d", a.ID), fmt.Errorf("panic: %v", r)))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	start := time.Now()
	err := u.transport.Send(ctx, a.Frame)
	elapsed := time.Since(start)

	if err != nil {
		u.metrics.UploadDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		u.reporter.Report(fault.New(fault.Transfer, fmt.Sprintf("upload #%d", a.ID), err))
		return
	}

	u.metrics.UploadDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	u.logger.Debug("Upload #%d sent %d bytes in %s", a.ID, len(a.Frame.Data), elapsed)
}
