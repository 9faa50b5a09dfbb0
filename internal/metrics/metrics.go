// Package metrics defines the prometheus collectors of the capture client and the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "framerelay"

// Capture holds the client side collectors.
type Capture struct {
	Ticks          prometheus.Counter
	SkippedTicks   prometheus.Counter
	EncodedFrames  prometheus.Counter
	SubmittedTotal prometheus.Counter
	DroppedTotal   prometheus.Counter
	UploadDuration *prometheus.HistogramVec
	InFlight       prometheus.Gauge
}

// Relay holds the server side collectors.
type Relay struct {
	RequestsTotal *prometheus.CounterVec
	SinkDuration  prometheus.Histogram
	PayloadBytes  prometheus.Histogram
	ViewersActive prometheus.Gauge
}

// Faults counts reported faults by kind.
type Faults struct {
	Total *prometheus.CounterVec
}

// NewCapture registers the capture collectors on reg.
func NewCapture(reg prometheus.Registerer) *Capture {
	f := promauto.With(reg)
	return &Capture{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "ticks_total",
			Help:      "Total number of capture timer ticks",
		}),
		SkippedTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "skipped_ticks_total",
			Help:      "Ticks skipped because the video signal was not ready",
		}),
		EncodedFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "encoded_frames_total",
			Help:      "Frames encoded to JPEG",
		}),
		SubmittedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "submitted_total",
			Help:      "Frames accepted by the single-flight uploader",
		}),
		DroppedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "dropped_total",
			Help:      "Frames discarded because an upload was already in flight",
		}),
		UploadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Duration of frame uploads to the relay",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"status"}), // status: success, error
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "in_flight",
			Help:      "Uploads currently in flight (0 or 1)",
		}),
	}
}

// NewRelay registers the relay collectors on reg.
func NewRelay(reg prometheus.Registerer) *Relay {
	f := promauto.With(reg)
	return &Relay{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Relay requests by outcome",
		}, []string{"outcome"}),
		SinkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "sink_duration_seconds",
			Help:      "Duration of sendPhoto calls to the sink",
			Buckets:   prometheus.DefBuckets,
		}),
		PayloadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "payload_bytes",
			Help:      "Size of relayed frames",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 8),
		}),
		ViewersActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "viewers_active",
			Help:      "Connected relay event viewers",
		}),
	}
}

// NewFaults registers the fault counter on reg.
func NewFaults(reg prometheus.Registerer) *Faults {
	return &Faults{
		Total: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Reported faults by kind",
		}, []string{"kind"}),
	}
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
