package observer

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "printum"

// PrometheusRecorder exports slice metrics through a Prometheus registry.
type PrometheusRecorder struct {
	inFlight    prometheus.Gauge
	duration    *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	uploadBytes *prometheus.HistogramVec
	uploads     *prometheus.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slices_in_flight",
			Help:      "Engine processes currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slice_duration_seconds",
			Help:      "Wall-clock duration of engine runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slices_total",
			Help:      "Engine runs by outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_size_bytes",
			Help:      "Size of uploaded model files.",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 8),
		}, []string{"extension"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Model uploads by extension and gate decision.",
		}, []string{"extension", "accepted"}),
	}

	for _, c := range []prometheus.Collector{r.inFlight, r.duration, r.outcomes, r.uploadBytes, r.uploads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) SliceStarted(context.Context) {
	r.inFlight.Inc()
}

// SliceFinished counts the outcome. Rejected jobs never started, so they skip the gauge
// and the duration histogram.
func (r *PrometheusRecorder) SliceFinished(_ context.Context, outcome string, elapsed time.Duration) {
	r.outcomes.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRejected {
		return
	}
	r.inFlight.Dec()
	r.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *PrometheusRecorder) ObserveUpload(_ context.Context, extension string, sizeBytes int64, accepted bool) {
	if extension == "" {
		extension = "none"
	}
	r.uploads.WithLabelValues(extension, strconv.FormatBool(accepted)).Inc()
	if accepted {
		r.uploadBytes.WithLabelValues(extension).Observe(float64(sizeBytes))
	}
}
