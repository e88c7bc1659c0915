package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "libgo"

// Invocation outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

// Metrics contains the client-level metrics for function invocations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Invocations        *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	StreamEvents       *prometheus.CounterVec
	BlobBytesEncoded   prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of function invocations",
			},
			[]string{"service", "function", "outcome"},
		),

		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Function invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "function"},
		),

		StreamEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_events_total",
				Help:      "Total number of stream events dispatched",
			},
			[]string{"type"},
		),

		BlobBytesEncoded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blob_bytes_encoded_total",
				Help:      "Total number of binary parameter bytes encoded as base64",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of invocation errors by class",
			},
			[]string{"class"},
		),
	}
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Invocations,
		m.InvocationDuration,
		m.StreamEvents,
		m.BlobBytesEncoded,
		m.ErrorsTotal,
	}
}

// RecordInvocation counts a finished invocation and observes its duration
func (m *Metrics) RecordInvocation(service, function, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(service, function, outcome).Inc()
	m.InvocationDuration.WithLabelValues(service, function).Observe(duration.Seconds())
}

// RecordStreamEvent increments the dispatched event counter
func (m *Metrics) RecordStreamEvent(eventType string) {
	if m == nil {
		return
	}
	m.StreamEvents.WithLabelValues(eventType).Inc()
}

// RecordBlobBytes adds encoded payload bytes
func (m *Metrics) RecordBlobBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BlobBytesEncoded.Add(float64(n))
}

// RecordError increments the error counter for a class
func (m *Metrics) RecordError(class string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(class).Inc()
}
