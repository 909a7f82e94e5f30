package preview

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	stageLabel  = "stage"
	resultLabel = "result"
)

var (
	ensureMetricRegisteringOnce sync.Once
	stageLatencyHist            *prometheus.HistogramVec
	runsCounter                 *prometheus.CounterVec
)

type metricCollector struct{}

func newMetricCollector(metricRegistry *prometheus.Registry) *metricCollector {
	ensureMetricRegisteringOnce.Do(func() {
		stageLatencyHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "stage_duration_seconds",
				Subsystem: "pipeline",
				Namespace: "previewd",
				Help:      "the time each pipeline stage took, partitioned by stage",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
			},
			[]string{stageLabel},
		)

		runsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "runs_total",
				Subsystem: "pipeline",
				Namespace: "previewd",
				Help:      "count of finished pipeline invocations, partitioned by result",
			},
			[]string{resultLabel},
		)

		metricRegistry.MustRegister(stageLatencyHist, runsCounter)
	})

	return &metricCollector{}
}

func (collector *metricCollector) observeStage(stage string, elapsed time.Duration) {
	stageLatencyHist.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (collector *metricCollector) incRunResult(result string) {
	runsCounter.WithLabelValues(result).Inc()
}
