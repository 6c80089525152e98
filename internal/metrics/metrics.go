package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for promotion items.
const (
	ItemMigrated = "migrated"
	ItemResumed  = "resumed"
	ItemFailed   = "failed"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	promotionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ascent",
			Subsystem: "promotion",
			Name:      "runs_total",
			Help:      "Total number of promotion worker runs by result.",
		},
		[]string{"result"},
	)

	promotionSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ascent",
			Subsystem: "promotion",
			Name:      "runs_skipped_total",
			Help:      "Runs skipped because a previous run was still in progress.",
		},
	)

	promotionItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ascent",
			Subsystem: "promotion",
			Name:      "items_total",
			Help:      "Staged steps processed by outcome.",
		},
		[]string{"outcome"},
	)

	promotionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ascent",
			Subsystem: "promotion",
			Name:      "run_duration_seconds",
			Help:      "Duration of promotion worker runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	promotionLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ascent",
			Subsystem: "promotion",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last promotion run that reached storage.",
		},
	)
)

func init() {
	Registry.MustRegister(
		promotionRuns,
		promotionSkipped,
		promotionItems,
		promotionDuration,
		promotionLastSuccess,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordPromotionRun records one finished worker run.
func RecordPromotionRun(duration time.Duration, success bool, finishedAt time.Time) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	result := "error"
	if success {
		result = "ok"
		promotionLastSuccess.Set(float64(finishedAt.Unix()))
	}
	promotionRuns.WithLabelValues(result).Inc()
	promotionDuration.Observe(duration.Seconds())
}

// RecordPromotionSkipped counts a run that overlapped a previous one.
func RecordPromotionSkipped() {
	promotionSkipped.Inc()
}

// RecordPromotionItem counts one staged step by outcome.
func RecordPromotionItem(outcome string) {
	promotionItems.WithLabelValues(outcome).Inc()
}
