package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments resource loads. A nil *Metrics records nothing.
type Metrics struct {
	loads    *prometheus.CounterVec
	attempts *prometheus.CounterVec
	loading  *prometheus.GaugeVec
	stale    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_resource_loads_total",
			Help: "Completed resource loads by outcome.",
		}, []string{"key", "outcome"}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_resource_fetch_attempts_total",
			Help: "Fetch attempts including retries.",
		}, []string{"key"}),
		loading: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_resource_loading",
			Help: "1 while a resource is loading.",
		}, []string{"key"}),
		stale: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_resource_stale_results_total",
			Help: "Load outcomes dropped because a newer load superseded them.",
		}, []string{"key"}),
	}
}

func (m *Metrics) attempt(key string) {
	if m != nil {
		m.attempts.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) setLoading(key string, on bool) {
	if m == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	m.loading.WithLabelValues(key).Set(v)
}

func (m *Metrics) done(key, outcome string) {
	if m != nil {
		m.loads.WithLabelValues(key, outcome).Inc()
	}
}

func (m *Metrics) staleResult(key string) {
	if m != nil {
		m.stale.WithLabelValues(key).Inc()
	}
}
