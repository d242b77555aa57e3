package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "framegif"

// Metrics keeps compose stats in a private registry and dumps them
// into a node_exporter textfile collector file.
type Metrics struct {
	path string
	reg  *prometheus.Registry

	composes *prometheus.CounterVec
	duration prometheus.Gauge
	frames   prometheus.Gauge
	bytes    prometheus.Gauge
	last     prometheus.Gauge
}

// New returns nil when path is empty, a nil *Metrics does nothing.
func New(path string) *Metrics {
	if path == "" {
		return nil
	}
	m := &Metrics{
		path: path,
		reg:  prometheus.NewRegistry(),
		composes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compose_total",
			Help:      "Number of compose runs by result.",
		}, []string{"result"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Duration of the last compose run.",
		}),
		frames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames",
			Help:      "Frames in the last published animation.",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_bytes",
			Help:      "Size of the last published animation.",
		}),
		last: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful compose.",
		}),
	}
	m.reg.MustRegister(m.composes, m.duration, m.frames, m.bytes, m.last)
	return m
}

// Observe records one compose run and writes the textfile.
func (m *Metrics) Observe(frames int, size int64, elapsed time.Duration, err error) error {
	if m == nil {
		return nil
	}
	m.duration.Set(elapsed.Seconds())
	if err != nil {
		m.composes.WithLabelValues("error").Inc()
	} else {
		m.composes.WithLabelValues("ok").Inc()
		m.frames.Set(float64(frames))
		m.bytes.Set(float64(size))
		m.last.SetToCurrentTime()
	}
	return prometheus.WriteToTextfile(m.path, m.reg)
}

func (m *Metrics) String() string {
	if m == nil {
		return "monitoring::off"
	}
	return "monitoring::" + m.path
}
