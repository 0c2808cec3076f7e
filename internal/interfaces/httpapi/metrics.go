package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so independent servers (and tests) never
// collide on collector registration.
type Metrics struct {
	registry *prometheus.Registry

	ingested       prometheus.Counter
	rejected       *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	commands       prometheus.Histogram
	backfill       *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	kafkaMessages  *prometheus.CounterVec
	kafkaErrors    *prometheus.CounterVec
	kafkaLag       prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ingested: factory.NewCounter(prometheus.CounterOpts{
			Name: "ptbscope_replays_ingested_total",
			Help: "Replays aggregated and stored.",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ptbscope_replays_rejected_total",
			Help: "Bundles rejected during aggregation, by offending artifact.",
		}, []string{"artifact"}),
		ingestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ptbscope_ingest_duration_seconds",
			Help:    "Time from bundle receipt to stored replay.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		commands: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ptbscope_replay_commands",
			Help:    "Commands per ingested replay.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
		backfill: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ptbscope_signature_backfill_total",
			Help: "MoveCall signatures fetched over RPC, by outcome.",
		}, []string{"outcome"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ptbscope_aggregate_cache_lookups_total",
			Help: "In-process aggregate cache lookups, by result.",
		}, []string{"result"}),
		kafkaMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ptbscope_kafka_messages_total",
			Help: "Messages fetched from the ingest topic.",
		}, []string{"topic"}),
		kafkaErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ptbscope_kafka_errors_total",
			Help: "Ingest consumer errors, by stage.",
		}, []string{"stage"}),
		kafkaLag: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ptbscope_kafka_message_lag_seconds",
			Help: "Age of the last fetched ingest message.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ptbscope_http_requests_total",
			Help: "HTTP requests, by route.",
		}, []string{"route", "code", "method"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ptbscope_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) OnReplayIngested(duration time.Duration, commands int) {
	m.ingested.Inc()
	m.ingestDuration.Observe(duration.Seconds())
	m.commands.Observe(float64(commands))
}

func (m *Metrics) OnReplayRejected(artifact string) {
	m.rejected.WithLabelValues(artifact).Inc()
}

func (m *Metrics) OnSignatureBackfill(filled, failed int) {
	m.backfill.WithLabelValues("filled").Add(float64(filled))
	m.backfill.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) observeCache(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) ObserveKafkaMessage(topic string, ts time.Time) {
	m.kafkaMessages.WithLabelValues(topic).Inc()
	if !ts.IsZero() {
		m.kafkaLag.Set(time.Since(ts).Seconds())
	}
}

func (m *Metrics) IncKafkaFetchErr()  { m.kafkaErrors.WithLabelValues("fetch").Inc() }
func (m *Metrics) IncKafkaDecodeErr() { m.kafkaErrors.WithLabelValues("decode").Inc() }
func (m *Metrics) IncKafkaFlushErr()  { m.kafkaErrors.WithLabelValues("flush").Inc() }

// instrument wraps h with request counters and latency for route.
func (m *Metrics) instrument(route string, h http.HandlerFunc) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(m.httpDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.httpRequests.MustCurryWith(labels), h))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
