package sink

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts record outcomes per sink. A nil *Metrics is a valid
// no-op receiver so sinks work without a registry.
type Metrics struct {
	written *prometheus.CounterVec
	dropped *prometheus.CounterVec
	errors  *prometheus.CounterVec
}

// NewMetrics creates sink counters and registers them with reg when
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "widelog_sink_records_written_total",
			Help: "Records successfully written by each sink.",
		}, []string{"sink"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "widelog_sink_records_dropped_total",
			Help: "Records dropped because a sink queue was full.",
		}, []string{"sink"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "widelog_sink_write_errors_total",
			Help: "Write failures observed inside sink workers.",
		}, []string{"sink"}),
	}
	if reg != nil {
		reg.MustRegister(m.written, m.dropped, m.errors)
	}
	return m
}

func (m *Metrics) recordWritten(sink string) {
	if m != nil {
		m.written.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) recordDropped(sink string) {
	if m != nil {
		m.dropped.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) recordError(sink string) {
	if m != nil {
		m.errors.WithLabelValues(sink).Inc()
	}
}
