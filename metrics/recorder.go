package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spooktrunt"

// Recorder owns the Prometheus collectors on a private registry and feeds the
// in-memory Store. It satisfies the observer interfaces of the studio and of
// both generation clients.
//
// Thread Safety: Recorder is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry
	store    *Store

	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	providerCallsTotal *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	activeSessions     prometheus.Gauge
}

// NewRecorder registers all collectors, plus the Go and process collectors,
// on a fresh registry.
func NewRecorder(store *Store) *Recorder {
	if store == nil {
		store = NewStore(DefaultStoreConfig(), time.Now())
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		store:    store,

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "studio",
				Name:      "operations_total",
				Help:      "Total number of studio operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "studio",
				Name:      "operation_duration_seconds",
				Help:      "Studio operation duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"operation"},
		),
		providerCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "calls_total",
				Help:      "Total number of model provider calls",
			},
			[]string{"kind", "provider", "operation", "outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "call_duration_seconds",
				Help:      "Model provider call duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"kind", "provider"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "studio",
			Name:      "active_sessions",
			Help:      "Current number of browser sessions",
		}),
	}

	r.registry.MustRegister(
		r.operationsTotal,
		r.operationDuration,
		r.providerCallsTotal,
		r.providerDuration,
		r.httpRequestsTotal,
		r.httpDuration,
		r.activeSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOperation records a studio operation outcome.
func (r *Recorder) ObserveOperation(op, outcome string, elapsed time.Duration) {
	r.operationsTotal.WithLabelValues(op, outcome).Inc()
	if outcome != OutcomeRejected {
		r.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	r.store.Record(OperationRecord{
		Operation: op,
		Outcome:   outcome,
		Duration:  elapsed,
		At:        time.Now(),
	})
}

// ObserveProviderCall records one text or image provider exchange.
func (r *Recorder) ObserveProviderCall(kind, provider, operation string, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = "error"
	}
	r.providerCallsTotal.WithLabelValues(kind, provider, operation, outcome).Inc()
	r.providerDuration.WithLabelValues(kind, provider).Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records a served request. route is the registered
// pattern, never the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetActiveSessions reports the current session count.
func (r *Recorder) SetActiveSessions(n int) {
	r.activeSessions.Set(float64(n))
}

// TrackInFlight exposes count as the number of running studio operations.
// It must be called at most once.
func (r *Recorder) TrackInFlight(count func() int64) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "studio",
			Name:      "operations_in_flight",
			Help:      "Current number of running studio operations",
		},
		func() float64 { return float64(count()) },
	))
}

// Store returns the in-memory store behind the recorder.
func (r *Recorder) Store() *Store {
	return r.store
}

// Registry exposes the private registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
