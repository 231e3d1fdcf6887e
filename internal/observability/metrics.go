package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment service.
type Metrics struct {
	AssessmentsStarted   *prometheus.CounterVec // labels: mode={stream,blocking}
	AssessmentsCompleted *prometheus.CounterVec // labels: mode={stream,blocking}, outcome={success,error}
	StageDuration        *prometheus.HistogramVec

	// Outbound provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	GeocodeCache     *prometheus.CounterVec   // labels: result={hit,miss}

	// Model metrics.
	ModelCalls            *prometheus.CounterVec // labels: kind={list,generate}, outcome={success,error}
	ModelEndpointResolved prometheus.Gauge       // 1 once a listed endpoint is cached

	// Side-effect metrics.
	Notifications    *prometheus.CounterVec // labels: sink={webhook,kafka}, outcome={sent,failed,skipped}
	AlertLogWrites   *prometheus.CounterVec // labels: outcome={success,error}
	AlertLogsPruned  prometheus.Counter
	PersistenceReady prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AssessmentsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "assessments_started_total",
			Help:      "Assessment runs started, by delivery mode.",
		}, []string{"mode"}),
		AssessmentsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "assessments_completed_total",
			Help:      "Assessment runs finished, by delivery mode and terminal outcome.",
		}, []string{"mode", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "allergy_risk",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"stage"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "provider_requests_total",
			Help:      "Outbound environmental and geocoding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "allergy_risk",
			Name:      "provider_request_duration_seconds",
			Help:      "Outbound provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "model_calls_total",
			Help:      "Model API calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ModelEndpointResolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "allergy_risk",
			Name:      "model_endpoint_resolved",
			Help:      "1 once a listed model endpoint has been cached for the process.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "notifications_total",
			Help:      "Fire-and-forget notification attempts by sink and outcome.",
		}, []string{"sink", "outcome"}),
		AlertLogWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "alert_log_writes_total",
			Help:      "Alert log persistence attempts by outcome.",
		}, []string{"outcome"}),
		AlertLogsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "allergy_risk",
			Name:      "alert_logs_pruned_total",
			Help:      "Alert log rows removed by the retention sweep.",
		}),
		PersistenceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "allergy_risk",
			Name:      "persistence_ready",
			Help:      "1 when the persistence store is configured and reachable.",
		}),
	}

	prometheus.MustRegister(
		m.AssessmentsStarted,
		m.AssessmentsCompleted,
		m.StageDuration,
		m.ProviderRequests,
		m.ProviderDuration,
		m.GeocodeCache,
		m.ModelCalls,
		m.ModelEndpointResolved,
		m.Notifications,
		m.AlertLogWrites,
		m.AlertLogsPruned,
		m.PersistenceReady,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AssessmentsStarted:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "assessments_started_total"}, []string{"mode"}),
		AssessmentsCompleted:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "assessments_completed_total"}, []string{"mode", "outcome"}),
		StageDuration:         prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "allergy_risk", Name: "stage_duration_seconds"}, []string{"stage"}),
		ProviderRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "allergy_risk", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		GeocodeCache:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "geocode_cache_total"}, []string{"result"}),
		ModelCalls:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "model_calls_total"}, []string{"kind", "outcome"}),
		ModelEndpointResolved: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "allergy_risk", Name: "model_endpoint_resolved"}),
		Notifications:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "notifications_total"}, []string{"sink", "outcome"}),
		AlertLogWrites:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "alert_log_writes_total"}, []string{"outcome"}),
		AlertLogsPruned:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "allergy_risk", Name: "alert_logs_pruned_total"}),
		PersistenceReady:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "allergy_risk", Name: "persistence_ready"}),
	}
}
