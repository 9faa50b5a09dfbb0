package camera

import (
	"errors"
	"fmt"

	"framerelay/internal/capture"

	"gocv.io/x/gocv"
)

// DefaultQuality is JPEG quality 0.8 expressed on OpenCV's 0-100 scale.
const DefaultQuality = 80

// JPEGEncoder compresses a canvas to JPEG at a fixed quality.
type JPEGEncoder struct {
	quality int
}

var _ capture.Encoder = (*JPEGEncoder)(nil)

// NewJPEGEncoder creates an encoder. Out-of-range qualities fall back to DefaultQuality.
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEGEncoder{quality: quality}
}

// Encode returns the JPEG bytes of src in one buffer.
func (e *JPEGEncoder) Encode(src capture.Canvas) ([]byte, error) {
	c, ok := src.(*Canvas)
	if !ok {
		return nil, fmt.Errorf("camera: unsupported canvas %T", src)
	}
	if c.mat.Empty() {
		return nil, errors.New("camera: cannot encode an empty canvas")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.mat, []int{gocv.IMWriteJpegQuality, e.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	defer buf.Close()

	// buf's memory is owned by OpenCV and freed on Close.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
