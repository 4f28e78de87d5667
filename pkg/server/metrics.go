package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramosmx/clubpilot/pkg/browser"
)

// PoolStatuser reports session pool occupancy. Satisfied by *browser.Pool.
type PoolStatuser interface {
	Status() browser.PoolStatus
}

// metrics holds the server's prometheus instruments. Each server carries
// its own registry so tests can spin up servers side by side.
type metrics struct {
	registry *prometheus.Registry

	extractions     *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

func newMetrics(pool PoolStatuser) *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "clubpilot",
		Name:      "pool_sessions_active",
		Help:      "Browser sessions currently serving a request.",
	}, func() float64 { return float64(pool.Status().Active) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "clubpilot",
		Name:      "pool_sessions_idle",
		Help:      "Browser sessions open but inactive.",
	}, func() float64 { return float64(pool.Status().Idle) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "clubpilot",
		Name:      "pool_capacity",
		Help:      "Configured session pool ceiling.",
	}, func() float64 { return float64(pool.Status().Capacity) })

	return &metrics{
		registry: reg,
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubpilot",
			Name:      "extractions_total",
			Help:      "Extraction requests by final status.",
		}, []string{"status"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubpilot",
			Name:      "extractor_outcomes_total",
			Help:      "Per-extractor outcomes by status.",
		}, []string{"extractor", "status"}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clubpilot",
			Name:      "extract_request_duration_seconds",
			Help:      "End-to-end extraction request duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
