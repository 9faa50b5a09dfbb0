// Package capture samples frames from a live source on a fixed interval and hands them to a
// single-flight uploader. A frame offered while an upload is in flight is dropped.
package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

var (
	// ErrAlreadyStarted is returned by Start on a live session.
	ErrAlreadyStarted = errors.New("capture: session already started")
	// ErrStopped is returned by Start once the session has been torn down.
	ErrStopped = errors.New("capture: session stopped")
)

// Frame is one encoded still image. It is never modified after creation.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// Canvas is the render target a tick samples the source into.
type Canvas interface {
	Size() image.Point
	Resize(size image.Point)
	Close() error
}

// Source is a live video signal.
type Source interface {
	// Ready reports whether a decoded frame with known dimensions is available.
	Ready() bool
	// Size returns the native dimensions of the current signal.
	Size() image.Point
	// NewCanvas allocates a render target compatible with Draw.
	NewCanvas() Canvas
	// Draw copies the latest frame into dst. dst already has the source's size.
	Draw(dst Canvas) error
	// Err returns a non-nil error once the device can no longer produce frames.
	Err() error
	// Close releases the device.
	Close() error
}

// Encoder compresses the pixels held by a canvas into a still image.
type Encoder interface {
	Encode(src Canvas) ([]byte, error)
}

// Transport sends one frame to the relay.
type Transport interface {
	Send(ctx context.Context, frame Frame) error
}

// Stats is a snapshot of a session's counters.
type Stats struct {
	Ticks     uint64
	Skipped   uint64
	Encoded   uint64
	Submitted uint64
	Dropped   uint64
}
