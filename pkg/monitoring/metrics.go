package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retrocore"

// Metrics of a running core.
type Metrics struct {
	Frames         prometheus.Counter
	FrameTime      prometheus.Histogram
	Samples        prometheus.Counter
	SavestateBytes prometheus.Gauge
	States         *prometheus.CounterVec
	LoadFailures   prometheus.Counter
	OptionChanges  prometheus.Counter
}

// NewMetrics registers the metrics of a core in reg.
func NewMetrics(reg prometheus.Registerer, core string) *Metrics {
	labels := prometheus.Labels{"core": core}
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_total", Help: "Frames run.", ConstLabels: labels,
		}),
		FrameTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "frame_seconds", Help: "Time spent in a frame.", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "audio_samples_total", Help: "Audio samples received.", ConstLabels: labels,
		}),
		SavestateBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "savestate_bytes", Help: "Savestate buffer size.", ConstLabels: labels,
		}),
		States: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "savestates_total", Help: "Savestate operations.", ConstLabels: labels,
		}, []string{"op", "result"}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "load_failures_total", Help: "Games that failed to load.", ConstLabels: labels,
		}),
		OptionChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "option_changes_total", Help: "Core option reloads.", ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.Frames, m.FrameTime, m.Samples, m.SavestateBytes, m.States, m.LoadFailures, m.OptionChanges)
	return m
}

// Frame records one frame that took d.
func (m *Metrics) Frame(d time.Duration) {
	m.Frames.Inc()
	m.FrameTime.Observe(d.Seconds())
}

// State counts a savestate operation.
func (m *Metrics) State(op string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	m.States.WithLabelValues(op, result).Inc()
}
