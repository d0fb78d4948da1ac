package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts worker decisions. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	cacheLookups   *prometheus.CounterVec
	networkErrors  prometheus.Counter
	offlineReplies *prometheus.CounterVec
	recordWrites   *prometheus.CounterVec
	installAssets  *prometheus.CounterVec
	bucketsEvicted prometheus.Counter
}

// NewMetrics registers the worker metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasklet_worker_cache_lookups_total",
			Help: "Intercepted requests by cache lookup result",
		}, []string{"result"}),
		networkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklet_worker_network_errors_total",
			Help: "Network fetches that failed",
		}),
		offlineReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasklet_worker_offline_responses_total",
			Help: "Responses served after a network failure, by source",
		}, []string{"source"}),
		recordWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasklet_worker_record_writes_total",
			Help: "Structured store writes by result",
		}, []string{"result"}),
		installAssets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasklet_worker_install_assets_total",
			Help: "Precached assets by result",
		}, []string{"result"}),
		bucketsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklet_worker_buckets_evicted_total",
			Help: "Stale cache generations deleted on activation",
		}),
	}

	registry.MustRegister(
		m.cacheLookups,
		m.networkErrors,
		m.offlineReplies,
		m.recordWrites,
		m.installAssets,
		m.bucketsEvicted,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) networkError() {
	if m == nil {
		return
	}
	m.networkErrors.Inc()
}

func (m *Metrics) offlineReply(source string) {
	if m == nil {
		return
	}
	m.offlineReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) recordWrite(err error) {
	if m == nil {
		return
	}
	m.recordWrites.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) installAsset(err error) {
	if m == nil {
		return
	}
	m.installAssets.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) bucketEvicted() {
	if m == nil {
		return
	}
	m.bucketsEvicted.Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
