package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"framerelay/internal/fault"
	"framerelay/internal/logger"
	"framerelay/internal/metrics"

	"github.com/google/uuid"
)

// DefaultInterval is the sampling cadence of a capture session.
const DefaultInterval = 500 * time.Millisecond

var errSourceNotReady = errors.New("video signal has no decoded frame yet")

// Session owns one camera source, its sampling timer and the uploader it feeds.
type Session struct {
	ID string

	source   Source
	encoder  Encoder
	uploader *Uploader
	interval time.Duration
	reporter *fault.Reporter
	logger   *logger.Logger
	metrics  *metrics.Capture

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	done     chan struct{}
	err      error

	// tickMu serializes ticks with each other and with teardown.
	tickMu sync.Mutex
	live   atomic.Bool
	canvas Canvas

	ticks   atomic.Uint64
	skipped atomic.Uint64
	encoded atomic.Uint64
}

// NewSession creates a session over an already acquired source. A zero interval uses DefaultInterval.
func NewSession(source Source, encoder Encoder, uploader *Uploader, interval time.Duration,
	reporter *fault.Reporter, logger *logger.Logger, m *metrics.Capture) *Session {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Session{
		ID:       uuid.NewString(),
		source:   source,
		encoder:  encoder,
		uploader: uploader,
		interval: interval,
		reporter: reporter,
		logger:   logger,
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Start begins ticking until ctx is cancelled or Stop is called. Either way the
// session is torn down and Done is closed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}

	s.canvas = s.source.NewCanvas()
	s.started = true
	s.live.Store(true)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	go s.loop(loopCtx)

	s.logger.Info("Capture session %s started, sampling every %s", s.ID, s.interval)
	return nil
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The caller's context ended the session; tear down as Stop would.
			// When Stop itself cancelled ctx this call only waits for it.
			s.live.Store(false)
			go s.Stop()
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick samples one frame and offers it to the uploader. It is a no-op on a session that
// is not live and on a source that is not ready yet.
func (s *Session) Tick() {
	if !s.live.Load() {
		return
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	// Stop may have won the race for tickMu.
	if !s.live.Load() {
		return
	}
	s.ticks.Add(1)
	s.metrics.Ticks.Inc()

	if err := s.source.Err(); err != nil {
		s.fail(fault.New(fault.Acquisition, "camera", err))
		return
	}

	size := s.source.Size()
	if !s.source.Ready() || size.X <= 0 || size.Y <= 0 {
		s.skipped.Add(1)
		s.metrics.SkippedTicks.Inc()
		s.reporter.Report(fault.New(fault.EncodingSkip, "tick", errSourceNotReady))
		return
	}

	if s.canvas.Size() != size {
		s.canvas.Resize(size)
	}

	if err := s.source.Draw(s.canvas); err != nil {
		s.reporter.Report(fault.New(fault.EncodingSkip, "draw", err))
		return
	}

	data, err := s.encoder.Encode(s.canvas)
	if err != nil {
		s.reporter.Report(fault.New(fault.EncodingSkip, "encode", err))
		return
	}
	s.encoded.Add(1)
	s.metrics.EncodedFrames.Inc()

	if !s.live.Load() {
		return
	}
	s.uploader.Submit(Frame{Data: data, CapturedAt: time.Now()})
}

// fail ends the session after an acquisition fault. It runs with tickMu held, so the
// teardown happens on its own goroutine.
func (s *Session) fail(err *fault.Error) {
	s.reporter.Report(err)

	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.live.Store(false)
	go s.Stop()
}

// Stop cancels the timer and releases the camera. Transfers already in flight finish on
// their own. Calling Stop again waits for the first teardown and returns nil.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.stopped = true
	s.live.Store(false)
	cancel, loopDone := s.cancel, s.loopDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-loopDone
	}

	s.tickMu.Lock()
	var errs []error
	if s.canvas != nil {
		errs = append(errs, s.canvas.Close())
		s.canvas = nil
	}
	errs = append(errs, s.source.Close())
	s.tickMu.Unlock()

	close(s.done)
	s.logger.Info("Capture session %s stopped", s.ID)
	return errors.Join(errs...)
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the acquisition fault that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Live reports whether the session is ticking.
func (s *Session) Live() bool {
	return s.live.Load()
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	return Stats{
		Ticks:     s.ticks.Load(),
		Skipped:   s.skipped.Load(),
		Encoded:   s.encoded.Load(),
		Submitted: s.uploader.submitted.Load(),
		Dropped:   s.uploader.dropped.Load(),
	}
}
