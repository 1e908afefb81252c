package httpapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

type metrics struct {
	runs         *prometheus.CounterVec
	stageFailed  *prometheus.CounterVec
	duration     prometheus.Histogram
	inFlight     prometheus.Gauge
	waitingSlots prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livelo_rpa",
			Name:      "runs_total",
			Help:      "Finished runs by outcome (complete, degraded, fatal).",
		}, []string{"outcome"}),
		stageFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livelo_rpa",
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures by stage.",
		}, []string{"stage"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "livelo_rpa",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run, excluding the wait for a slot.",
			Buckets:   []float64{5, 15, 30, 60, 90, 120, 180, 300},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "livelo_rpa",
			Name:      "runs_in_flight",
			Help:      "Runs currently holding a browser.",
		}),
		waitingSlots: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "livelo_rpa",
			Name:      "runs_waiting",
			Help:      "Requests waiting for a run slot.",
		}),
	}
}

func (m *metrics) observe(res *loyalty.RunResult, elapsed time.Duration) {
	m.runs.WithLabelValues(string(res.Outcome())).Inc()
	for _, stage := range res.FailedStages {
		m.stageFailed.WithLabelValues(string(stage)).Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}
