package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Processing modes used as the "mode" label.
const (
	ModeImage  = "image"
	ModeStream = "stream"
	ModeVideo  = "video"
)

// Collector groups the service's Prometheus metrics. A nil *Collector is a no-op.
type Collector struct {
	framesFiltered *prometheus.CounterVec
	frameErrors    *prometheus.CounterVec
	filterDuration *prometheus.HistogramVec
	activeStreams  prometheus.Gauge
	videoJobs      *prometheus.CounterVec
}

// NewCollector registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		framesFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartoonify_frames_filtered_total",
			Help: "Total number of frames passed through the cartoon filter",
		}, []string{"mode"}),

		frameErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartoonify_frame_errors_total",
			Help: "Total number of frames that could not be filtered or encoded",
		}, []string{"mode"}),

		filterDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cartoonify_filter_duration_seconds",
			Help:    "Time spent filtering and encoding a single frame",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"mode"}),

		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cartoonify_active_streams",
			Help: "Number of webcam streams currently open",
		}),

		videoJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cartoonify_video_jobs_total",
			Help: "Total number of finished video jobs by final status",
		}, []string{"status"}),
	}
}

// ObserveFrame records one filtered frame, or one failure when err is not nil.
func (c *Collector) ObserveFrame(mode string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.frameErrors.WithLabelValues(mode).Inc()
		return
	}
	c.framesFiltered.WithLabelValues(mode).Inc()
	c.filterDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// StreamOpened increments the active stream gauge.
func (c *Collector) StreamOpened() {
	if c != nil {
		c.activeStreams.Inc()
	}
}

// StreamClosed decrements the active stream gauge.
func (c *Collector) StreamClosed() {
	if c != nil {
		c.activeStreams.Dec()
	}
}

// VideoJobFinished counts a video job by its final status.
func (c *Collector) VideoJobFinished(status string) {
	if c != nil {
		c.videoJobs.WithLabelValues(status).Inc()
	}
}
