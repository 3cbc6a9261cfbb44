package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы операции.
const (
	OutcomeOK      = "ok"
	OutcomeInput   = "input_error"
	OutcomeFailure = "error"
)

// Metrics - счетчики операций и событий.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	wsClients prometheus.Gauge
}

// New регистрирует метрики в собственном реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shazamio_operation_requests_total",
				Help: "Operation invocations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shazamio_operation_duration_seconds",
				Help:    "Operation latency including the upstream call",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shazamio_events_published_total",
				Help: "Events published per bus",
			},
			[]string{"bus"},
		),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shazamio_event_subscribers",
			Help: "Connected websocket event subscribers",
		}),
	}
}

// ObserveOperation учитывает один вызов. Безопасен для nil.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublished(bus string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(bus).Inc()
}

func (m *Metrics) SubscriberConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) SubscriberDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry нужен тестам и встраиванию в чужой /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
