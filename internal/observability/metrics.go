package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	turnOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trailctl",
			Subsystem: "turn",
			Name:      "outcomes_total",
			Help:      "Turns by decision outcome.",
		},
		[]string{"outcome"},
	)
	decisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trailctl",
			Subsystem: "turn",
			Name:      "decision_duration_seconds",
			Help:      "Time spent inside the decision function.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	sessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trailctl",
			Subsystem: "session",
			Name:      "ended_total",
			Help:      "Sessions by end reason.",
		},
		[]string{"end"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(turnOutcomes, decisionDuration, sessionsEnded)
	})
}

func RecordTurn(outcome string) {
	RegisterMetrics()
	turnOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDecision observes one call of the decision function. Turns that
// never reached it are not observed.
func RecordDecision(duration time.Duration) {
	RegisterMetrics()
	decisionDuration.Observe(duration.Seconds())
}

func RecordSessionEnd(end string) {
	RegisterMetrics()
	sessionsEnded.WithLabelValues(end).Inc()
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
