// Package camera adapts an OpenCV video capture device to the capture pipeline.
package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"framerelay/internal/capture"
	"framerelay/internal/logger"

	"gocv.io/x/gocv"
)

// maxReadFailures is how many consecutive empty reads mark the device as lost.
const maxReadFailures = 100

// closeTimeout bounds how long Close waits for an in-progress read.
const closeTimeout = 2 * time.Second

var (
	// ErrDeviceLost is reported once the device stops producing frames.
	ErrDeviceLost = errors.New("camera: device stopped producing frames")
	// ErrCloseTimeout is returned by Close when the read loop did not exit in time.
	ErrCloseTimeout = errors.New("camera: read loop did not stop")
)

// Canvas is a render target backed by an OpenCV matrix.
type Canvas struct {
	mat gocv.Mat
}

// NewCanvas allocates an empty canvas.
func NewCanvas() *Canvas {
	return &Canvas{mat: gocv.NewMat()}
}

// Size returns the canvas dimensions, or zero for an unallocated canvas.
func (c *Canvas) Size() image.Point {
	if c.mat.Empty() {
		return image.Point{}
	}
	return image.Pt(c.mat.Cols(), c.mat.Rows())
}

// Resize reallocates the canvas as a black BGR image of the given size.
func (c *Canvas) Resize(size image.Point) {
	c.mat.Close()
	c.mat = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8UC3)
}

// Close releases the matrix.
func (c *Canvas) Close() error {
	return c.mat.Close()
}

// Device continuously reads frames from a video capture device and keeps the latest one.
type Device struct {
	capture *gocv.VideoCapture
	logger  *logger.Logger

	mu     sync.RWMutex
	latest gocv.Mat
	ready  bool
	err    error

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ capture.Source = (*Device)(nil)

// Open acquires the camera with the given index and starts reading frames.
func Open(deviceID int, logger *logger.Logger) (*Device, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", deviceID)
	}

	d := &Device{
		capture: vc,
		logger:  logger,
		latest:  gocv.NewMat(),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.readLoop()

	logger.Info("Camera %d opened", deviceID)
	return d, nil
}

func (d *Device) readLoop() {
	defer d.wg.Done()

	img := gocv.NewMat()
	defer img.Close()

	failures := 0
	for {
		select {
		case <-d.done:
			return
		default:
		}

		if ok := d.capture.Read(&img); !ok || img.Empty() {
			failures++
			if failures >= maxReadFailures {
				d.mu.Lock()
				d.err = ErrDeviceLost
				d.mu.Unlock()
				d.logger.Error("Camera read failed %d times in a row", failures)
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		failures = 0

		d.mu.Lock()
		img.CopyTo(&d.latest)
		if !d.ready {
			d.logger.Info("Camera signal ready: %dx%d", img.Cols(), img.Rows())
		}
		d.ready = true
		d.mu.Unlock()
	}
}

// Ready reports whether at least one frame has been decoded.
func (d *Device) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready && !d.latest.Empty()
}

// Size returns the native dimensions of the latest frame.
func (d *Device) Size() image.Point {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready || d.latest.Empty() {
		return image.Point{}
	}
	return image.Pt(d.latest.Cols(), d.latest.Rows())
}

// NewCanvas allocates a canvas Draw can render into.
func (d *Device) NewCanvas() capture.Canvas {
	return NewCanvas()
}

// Draw copies the latest frame into dst, scaling when dst has a different size.
func (d *Device) Draw(dst capture.Canvas) error {
	c, ok := dst.(*Canvas)
	if !ok {
		return fmt.Errorf("camera: unsupported canvas %T", dst)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.latest.Empty() {
		return errors.New("camera: no frame to draw")
	}
	if c.Size() == image.Pt(d.latest.Cols(), d.latest.Rows()) {
		d.latest.CopyTo(&c.mat)
		return nil
	}
	return gocv.Resize(d.latest, &c.mat, c.Size(), 0, 0, gocv.InterpolationLinear)
}

// Err returns ErrDeviceLost once reading has given up.
func (d *Device) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

// Close stops the read loop and releases the device. It is safe to call more than once.
// When a read is stuck on a hung device Close gives up after closeTimeout and leaves the
// device and its last frame to the read goroutine.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		if !waitTimeout(&d.wg, closeTimeout) {
			d.logger.Warning("Camera read still blocked after %v, not releasing device", closeTimeout)
			err = ErrCloseTimeout
			return
		}

		err = d.capture.Close()
		d.mu.Lock()
		d.latest.Close()
		d.ready = false
		d.mu.Unlock()
		d.logger.Info("Camera released")
	})
	return err
}

// waitTimeout waits for wg and reports whether it finished within timeout.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return true
	case <-time.After(timeout):
		return false
	}
}
